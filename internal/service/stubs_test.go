package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/correction-api/internal/repository"
	"github.com/noah-isme/correction-api/pkg/document"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

type memoryDocument struct {
	id    string
	owner string
	body  []byte
	seq   int
}

// memoryDocumentStore mimics DocumentRepository: JSON bodies, top-level merge, field limit.
type memoryDocumentStore struct {
	mu         sync.Mutex
	docs       map[string]*memoryDocument
	seq        int
	maxField   int
	fetchDelay time.Duration
	mergeErr   error
	merges     int
}

func newMemoryDocumentStore() *memoryDocumentStore {
	return &memoryDocumentStore{docs: make(map[string]*memoryDocument)}
}

func (m *memoryDocumentStore) encode(body document.Map) ([]byte, error) {
	if m.maxField > 0 {
		tooLarge := false
		document.Walk(body, func(s string) {
			if len(s) > m.maxField {
				tooLarge = true
			}
		})
		if tooLarge {
			return nil, repository.ErrDocumentTooLarge
		}
	}
	return document.Marshal(body)
}

func (m *memoryDocumentStore) Insert(ctx context.Context, collection, ownerID string, body document.Map) (string, error) {
	payload, err := m.encode(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := uuid.NewString()
	m.docs[collection+"/"+id] = &memoryDocument{id: id, owner: ownerID, body: payload, seq: m.seq}
	return id, nil
}

func (m *memoryDocumentStore) Fetch(ctx context.Context, collection, id string) (document.Map, error) {
	m.mu.Lock()
	doc, ok := m.docs[collection+"/"+id]
	var body []byte
	if ok {
		body = append([]byte(nil), doc.body...)
	}
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	if m.fetchDelay > 0 {
		time.Sleep(m.fetchDelay)
	}
	return document.ParseMap(body)
}

func (m *memoryDocumentStore) MergeUpdate(ctx context.Context, collection, id string, partial document.Map) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return m.mergeErr
	}
	doc, ok := m.docs[collection+"/"+id]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	current, err := document.ParseMap(doc.body)
	if err != nil {
		return err
	}
	payload, err := m.encode(current.Merge(partial))
	if err != nil {
		return err
	}
	m.seq++
	m.merges++
	doc.body = payload
	doc.seq = m.seq
	return nil
}

func (m *memoryDocumentStore) MergeUpsert(ctx context.Context, collection, id, ownerID string, partial document.Map) error {
	m.mu.Lock()
	if _, ok := m.docs[collection+"/"+id]; !ok {
		m.seq++
		m.docs[collection+"/"+id] = &memoryDocument{id: id, owner: ownerID, body: []byte(`{}`), seq: m.seq}
	}
	m.mu.Unlock()
	return m.MergeUpdate(ctx, collection, id, partial)
}

func (m *memoryDocumentStore) Remove(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, collection+"/"+id)
	return nil
}

func (m *memoryDocumentStore) ListByOwner(ctx context.Context, collection, ownerID string, limit int) ([]repository.StoredDocument, error) {
	m.mu.Lock()
	var matches []*memoryDocument
	for key, doc := range m.docs {
		if strings.HasPrefix(key, collection+"/") && doc.owner == ownerID {
			matches = append(matches, doc)
		}
	}
	m.mu.Unlock()
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]repository.StoredDocument, 0, len(matches))
	for _, doc := range matches {
		body, err := document.ParseMap(doc.body)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.StoredDocument{ID: doc.id, Body: body})
	}
	return out, nil
}

// raw returns the stored form of a document.
func (m *memoryDocumentStore) raw(collection, id string) document.Map {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[collection+"/"+id]
	if !ok {
		return nil
	}
	body, _ := document.ParseMap(doc.body)
	return body
}

func (m *memoryDocumentStore) setRaw(collection, id string, body document.Map) {
	payload, _ := document.Marshal(body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection+"/"+id].body = payload
}

type graderStub struct {
	mu       sync.Mutex
	calls    []CorrectionRequest
	delay    time.Duration
	failWhen func(CorrectionRequest) error
}

func (g *graderStub) Correct(ctx context.Context, req CorrectionRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	failWhen := g.failWhen
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if failWhen != nil {
		if err := failWhen(req); err != nil {
			return "", err
		}
	}
	return "15/20 - bon travail", nil
}

func (g *graderStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type completerStub struct {
	prompts []string
	reply   string
	err     error
}

func (c *completerStub) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

type cacheRepoStub struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{items: make(map[string][]byte)}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}
