package session

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/filewatcher"
	"github.com/SmileSnow819/natours/pkg/logging"
)

func TestFileChangeSyncsAcrossManagers(t *testing.T) {
	fake := newFakeAPI(t)
	fake.reply("POST /users/login", http.StatusOK, authBody("t1", annJSON))
	fake.reply("GET /users/getMe", http.StatusOK, meBody(annJSON))
	client := api.NewClient(api.Config{BaseURL: fake.srv.URL + "/api/v1"}, logging.NewTestLogger())

	path := filepath.Join(t.TempDir(), "credentials.json")
	writer := NewManager(client, credstore.NewFileStore(path), logging.NewTestLogger())
	follower := NewManager(client, credstore.NewFileStore(path), logging.NewTestLogger())
	t.Cleanup(writer.Wait)
	t.Cleanup(follower.Wait)
	follower.Restore(context.Background())

	w, err := filewatcher.NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)
	w.AddListener(follower)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, writer.Login(context.Background(), "ann@x.com", "secret"))
	require.Eventually(t, func() bool {
		return follower.Current().Token == "t1"
	}, 3*time.Second, 10*time.Millisecond)
	follower.Wait()
	assert.Equal(t, Authenticated, follower.Current().Status)

	writer.Logout()
	require.Eventually(t, func() bool {
		return follower.Current().Status == Unauthenticated
	}, 3*time.Second, 10*time.Millisecond)
}

func TestOnFileChange_WatcherError(t *testing.T) {
	f := loggedIn(t)
	f.manager.OnFileChange(filewatcher.ChangeEvent{Error: assert.AnError})
	assert.Equal(t, Authenticated, f.manager.Current().Status)
}
