package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Author    string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only view of the store plus live
// counters on a separate port. Debug builds only.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = MessageMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}

		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// MessageMapper renders msg:{timestamp}:{uuid} entries with their JSON
// payload decoded, and falls back to raw bytes for anything else.
func MessageMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Author:    "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "msg" {
		return row
	}

	row.Type = "MESSAGE"
	if tsNano, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
		row.Timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
	}
	row.EntityID = parts[2]
	if len(row.EntityID) > 8 {
		row.EntityID = row.EntityID[:8]
	}

	var payload struct {
		AuthorEmail string `json:"author_email"`
		Content     string `json:"content"`
		Lang        string `json:"lang"`
	}
	if err := json.Unmarshal(val, &payload); err == nil {
		row.Author = payload.AuthorEmail
		row.Detail = payload.Content
		if payload.Lang != "" {
			row.Detail += " [" + payload.Lang + "]"
		}
	}
	return row
}
