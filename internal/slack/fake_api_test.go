package slack

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/slack-go/slack"
)

// fakeSlackAPI answers the Web API methods the notifier uses
type fakeSlackAPI struct {
	mu       sync.Mutex
	posts    []string // channel|text
	lookups  int
	channels []map[string]interface{}
	failPost bool
}

func newFakeSlackAPI(t *testing.T) (*fakeSlackAPI, slack.Option) {
	t.Helper()
	api := &fakeSlackAPI{
		channels: []map[string]interface{}{
			{"id": "C0MATTILSY1", "name": "mattilsynet"},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, slack.OptionAPIURL(srv.URL + "/")
}

func (f *fakeSlackAPI) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/conversations.list":
		f.lookups++
		channels := f.channels
		if r.FormValue("types") != "public_channel" {
			channels = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":                true,
			"channels":          channels,
			"response_metadata": map[string]string{"next_cursor": ""},
		})
	case "/chat.postMessage":
		if f.failPost {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "channel_not_found"})
			return
		}
		f.posts = append(f.posts, r.FormValue("channel")+"|"+r.FormValue("text"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "channel": r.FormValue("channel"), "ts": "1700000000.000100"})
	default:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "unknown_method"})
	}
}

func (f *fakeSlackAPI) postedMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

func (f *fakeSlackAPI) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}
