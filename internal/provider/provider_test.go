package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/saq/internal/logging"
	"github.com/oxhq/saq/internal/store"
	"github.com/oxhq/saq/internal/value"
)

// helloMux wires a /hello handler declaring name in ALL_AT_ONCE mode
// alongside the caller-supplied /all_data handler, mirroring the two
// endpoints every real provider exposes.
func helloMux(name string, allData http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"` + name + `","description":"test","mode":"ALL_AT_ONCE","version":"1"}`))
	})
	mux.HandleFunc("/all_data", allData)
	return httptest.NewServer(mux)
}

func TestFetchOnceReplacesProviderContribution(t *testing.T) {
	srv := helloMux("hr", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"__id__":"alice","__types__":["person","employee"],"__source__":"hr","name":"Alice","age":29}]`))
	})
	defer srv.Close()

	s := store.New()
	p := New(s, []Source{{BaseURL: srv.URL}}, time.Hour, time.Second, logging.NewNop())

	p.fetchOnce(context.Background(), Source{BaseURL: srv.URL}, "hr")

	list := s.ByType("person")
	require.Equal(t, 1, list.Len())
	assert.Equal(t, "alice", list.Items[0].ID)
	assert.False(t, p.Degraded("hr"))
}

func TestFetchOnceMalformedClearsContribution(t *testing.T) {
	calls := 0
	srv := helloMux("hr", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`[{"__id__":"alice","__types__":["person"],"__source__":"hr"}]`))
			return
		}
		w.Write([]byte(`not json`))
	})
	defer srv.Close()

	s := store.New()
	src := Source{BaseURL: srv.URL}
	p := New(s, []Source{src}, time.Hour, time.Second, logging.NewNop())

	p.fetchOnce(context.Background(), src, "hr")
	require.Equal(t, 1, s.ByType("person").Len())

	p.fetchOnce(context.Background(), src, "hr")
	assert.Equal(t, 0, s.ByType("person").Len())
	assert.True(t, p.Degraded("hr"))
}

func TestFetchOnceDecodesLinkField(t *testing.T) {
	srv := helloMux("hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"__id__":"alice","__types__":["person"],"__source__":"hr","manager":{"__sa_type__":"link","query":"#bob[0]","label":"manager"}}]`))
	})
	defer srv.Close()

	s := store.New()
	src := Source{BaseURL: srv.URL}
	p := New(s, []Source{src}, time.Hour, time.Second, logging.NewNop())
	p.fetchOnce(context.Background(), src, "hr")

	list := s.ByType("person")
	require.Equal(t, 1, list.Len())
	field := list.Items[0].Field("manager")
	link, ok := field.(value.Link)
	require.True(t, ok)
	assert.Equal(t, "#bob[0]", link.QueryText)
	assert.NotNil(t, link.Query)
	assert.Equal(t, "manager", link.Label)
}

func TestFetchOnceMalformedLinkQueryClearsContribution(t *testing.T) {
	srv := helloMux("hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"__id__":"alice","__types__":["person"],"__source__":"hr","manager":{"__sa_type__":"link","query":"..("}}]`))
	})
	defer srv.Close()

	s := store.New()
	src := Source{BaseURL: srv.URL}
	p := New(s, []Source{src}, time.Hour, time.Second, logging.NewNop())
	p.fetchOnce(context.Background(), src, "hr")

	assert.Equal(t, 0, s.ByType("person").Len())
	assert.True(t, p.Degraded("hr"))
}

func TestFetchOnceNetworkErrorKeepsPreviousContribution(t *testing.T) {
	srv := helloMux("hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"__id__":"alice","__types__":["person"],"__source__":"hr"}]`))
	})

	s := store.New()
	src := Source{BaseURL: srv.URL}
	p := New(s, []Source{src}, time.Hour, time.Second, logging.NewNop())
	p.fetchOnce(context.Background(), src, "hr")
	require.Equal(t, 1, s.ByType("person").Len())

	srv.Close() // subsequent fetch will fail at the network level
	p.fetchOnce(context.Background(), src, "hr")
	assert.Equal(t, 1, s.ByType("person").Len())
	assert.False(t, p.Degraded("hr"))
}

func TestFetchAllOnceUsesHelloDeclaredName(t *testing.T) {
	srv := helloMux("hr-real-name", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"__id__":"alice","__types__":["person"],"__source__":"hr-real-name"}]`))
	})
	defer srv.Close()

	s := store.New()
	p := New(s, []Source{{BaseURL: srv.URL}}, time.Hour, time.Second, logging.NewNop())
	p.FetchAllOnce(context.Background())

	list := s.ByType("person")
	require.Equal(t, 1, list.Len())
	assert.Equal(t, "hr-real-name", list.Items[0].Source)
	assert.False(t, p.Degraded("hr-real-name"))
}

func TestFetchAllOnceSkipsProviderWithUnsupportedMode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"streamy","description":"test","mode":"DELTA","version":"1"}`))
	})
	mux.HandleFunc("/all_data", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("/all_data must not be fetched when /hello declares an unsupported mode")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := store.New()
	p := New(s, []Source{{BaseURL: srv.URL}}, time.Hour, time.Second, logging.NewNop())
	p.FetchAllOnce(context.Background())

	assert.Equal(t, 0, s.ByType("person").Len())
	assert.False(t, p.Degraded("streamy"))
}

func TestFetchAllOnceSkipsProviderWithUnreachableHello(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/all_data", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("/all_data must not be fetched when /hello fails")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := store.New()
	p := New(s, []Source{{BaseURL: srv.URL}}, time.Hour, time.Second, logging.NewNop())
	p.FetchAllOnce(context.Background())
}
