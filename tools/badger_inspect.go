package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Offline inspector for the chat store. Opens the database read-only so it
// can run next to a live server holding the lock.
func main() {
	dbPath := flag.String("db", "./data/chat", "Path to badger DB")
	// Default to messages to avoid colliding with index keys
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Timestamp", "Message ID", "Author", "Lang", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Skip the secondary id index explicitly
			if strings.HasPrefix(string(item.Key()), "msgid:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var stored struct {
					ID          string `json:"id"`
					AuthorEmail string `json:"author_email"`
					Content     string `json:"content"`
					Lang        string `json:"lang"`
					CreatedAt   int64  `json:"created_at"`
				}
				if err := json.Unmarshal(v, &stored); err != nil {
					// Log the broken entry and keep scanning
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// Show the first 8 characters of the id for readability
				displayID := stored.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				timestamp := "--:--:--"
				parts := strings.Split(string(item.Key()), ":")
				if len(parts) == 3 {
					if tsNano, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
						timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
					}
				}

				table.Append([]string{
					string(item.Key()),
					timestamp,
					displayID,
					stored.AuthorEmail,
					stored.Lang,
					stored.Content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
