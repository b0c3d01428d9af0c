package chroma_test

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/vector"
	"github.com/papercomputeco/folio/pkg/vector/chroma"
	"github.com/papercomputeco/folio/pkg/vector/vectortest"
)

// fakeChroma serves the subset of Chroma's v2 REST API the driver uses.
type fakeChroma struct {
	mu    sync.Mutex
	exist bool
	docs  map[string]fakeDoc
}

type fakeDoc struct {
	emb  []float32
	meta map[string]any
}

func newFakeChroma() *httptest.Server {
	f := &fakeChroma{docs: map[string]fakeDoc{}}
	return httptest.NewServer(http.HandlerFunc(f.serve))
}

func (f *fakeChroma) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/collections/"+chroma.DefaultCollectionName):
		if !f.exist {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": chroma.DefaultCollectionName})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/collections"):
		f.exist = true
		json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": chroma.DefaultCollectionName})
	case strings.HasSuffix(path, "/cid/upsert"):
		var req struct {
			IDs        []string         `json:"ids"`
			Embeddings [][]float32      `json:"embeddings"`
			Metadatas  []map[string]any `json:"metadatas"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for i := range req.IDs {
			if len(req.Embeddings[i]) != vectortest.Dimensions {
				http.Error(w, "dimension mismatch", http.StatusBadRequest)
				return
			}
		}
		for i, id := range req.IDs {
			f.docs[id] = fakeDoc{emb: req.Embeddings[i], meta: req.Metadatas[i]}
		}
		w.Write([]byte("{}"))
	case strings.HasSuffix(path, "/cid/query"):
		var req struct {
			QueryEmbeddings [][]float32    `json:"query_embeddings"`
			NResults        int            `json:"n_results"`
			Where           map[string]any `json:"where"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		type hit struct {
			id   string
			dist float32
			meta map[string]any
		}
		var hits []hit
		for id, d := range f.docs {
			if ns, ok := req.Where[vector.NamespaceKey]; ok && d.meta[vector.NamespaceKey] != ns {
				continue
			}
			hits = append(hits, hit{id, 1 - vector.CosineSimilarity(req.QueryEmbeddings[0], d.emb), d.meta})
		}
		slices.SortFunc(hits, func(a, b hit) int {
			if c := cmp.Compare(a.dist, b.dist); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})
		if len(hits) > req.NResults {
			hits = hits[:req.NResults]
		}
		ids, dists, metas := []string{}, []float32{}, []map[string]any{}
		for _, h := range hits {
			ids, dists, metas = append(ids, h.id), append(dists, h.dist), append(metas, h.meta)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{ids},
			"distances": [][]float32{dists},
			"metadatas": [][]map[string]any{metas},
		})
	case strings.HasSuffix(path, "/cid/get"):
		var req struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		ids, embs, metas := []string{}, [][]float32{}, []map[string]any{}
		for _, id := range req.IDs {
			if d, ok := f.docs[id]; ok {
				ids, embs, metas = append(ids, id), append(embs, d.emb), append(metas, d.meta)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"ids": ids, "embeddings": embs, "metadatas": metas})
	case strings.HasSuffix(path, "/cid/delete"):
		var req struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, id := range req.IDs {
			delete(f.docs, id)
		}
		w.Write([]byte("[]"))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each retry cycle issues a GET for the collection and a POST to
			// create it. Fail the first two cycles.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempt := attempts.Add(1)
				if attempt <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{
					"id":   "test-collection-id",
					"name": chroma.DefaultCollectionName,
				})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})

	Describe("Driver behaviour", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = newFakeChroma()
			DeferCleanup(server.Close)
		})

		vectortest.DescribeDriver(func() vector.Driver {
			d, err := chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})
})
