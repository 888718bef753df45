package testutils

import (
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/store"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// NewTestStore opens a fresh sqlite store in a temporary directory
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "chat.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	st := store.New(db)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// GetRequestPayload converts a given object into a reader of that obect as json payload
func GetRequestPayload(payload interface{}) io.Reader {
	bytes, _ := json.Marshal(payload)
	return strings.NewReader(string(bytes))
}

// RunningTime starts measuring runtime - usage defer Track(RunningTime("label"))
func RunningTime(s string) (string, time.Time) {
	log.Println("Start:	", s)
	return s, time.Now()
}

// Track finishes measuring runtime and prints result - usage defer Track(RunningTime("label"))
func Track(s string, startTime time.Time) {
	endTime := time.Now()
	log.Println("End:	", s, "took", endTime.Sub(startTime))
}

// MustJSON marshals or logs and returns nil
func MustJSON[T any](object T) datatypes.JSON {
	bytes, err := json.Marshal(object)
	if err != nil {
		logging.LogErrorf(err, "failed marshalling to JSON")
		return nil
	}
	return bytes
}

func Pointerfy[T any](thing T) *T {
	return &thing
}
