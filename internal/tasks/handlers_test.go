package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/media"
	"curator/internal/provider"
	"curator/internal/queue"
	"curator/internal/services/classify"
	"curator/internal/services/geocode"
	"curator/internal/testsupport"
)

func newNoopGeocoder() *geocode.Client {
	return geocode.NewClient(geocode.Config{APIKey: "key", BaseURL: "http://localhost:1"}, logging.NewNop())
}

func newNoopClassifier() *classify.Client {
	return classify.NewClient(classify.Config{APIKey: "key", BaseURL: "http://localhost:1"}, logging.NewNop())
}

type stubProvider struct {
	content map[string][]byte
}

func (s *stubProvider) ListFolder(context.Context, string, string) (provider.Page, error) {
	return provider.Page{}, nil
}

func (s *stubProvider) Download(_ context.Context, externalID string, dest io.Writer) error {
	_, err := dest.Write(s.content[externalID])
	return err
}

type stubMedia struct {
	image media.ImageResult
	video media.VideoResult
}

func (s *stubMedia) ProcessImage(context.Context, string) (media.ImageResult, error) {
	return s.image, nil
}

func (s *stubMedia) ProcessVideo(_ context.Context, path, workDir string) (media.VideoResult, error) {
	result := s.video
	base := filepath.Base(path)
	base = base[:len(base)-len(filepath.Ext(base))]
	result.TranscodedPath = filepath.Join(workDir, base+".web.mp4")
	result.StillFramePath = filepath.Join(workDir, base+".still.jpg")
	for _, out := range []string{result.TranscodedPath, result.StillFramePath} {
		if err := os.WriteFile(out, []byte("output"), 0o644); err != nil {
			return media.VideoResult{}, err
		}
	}
	return result, nil
}

func newEnv(t *testing.T, cfg *config.Config, store *queue.Store) *Environment {
	t.Helper()
	return &Environment{
		Store:      store,
		Library:    library.NewStore(store.DB()),
		Provider:   &stubProvider{content: map[string][]byte{}},
		Media:      &stubMedia{},
		StagingDir: cfg.Paths.StagingDir,
		OwnerID:    1,
		Logger:     logging.NewNop(),
	}
}

func TestImportFileStagesDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/cat.jpg", "id:cat", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	env.Provider.(*stubProvider).content["id:cat"] = []byte("jpeg bytes")

	outcome := env.importFile(ctx, &queue.Task{Type: queue.TypeImportImage, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("import failed: %v", outcome.Err)
	}

	record, err := env.Library.ByRemoteFileID(ctx, remote.ID)
	if err != nil || record == nil {
		t.Fatalf("expected catalog row, got %v (err %v)", record, err)
	}
	want := filepath.Join(cfg.Paths.StagingDir, strconv.FormatInt(remote.ID, 10)+".jpg")
	if record.StagingPath != want {
		t.Fatalf("staging path = %q, want %q", record.StagingPath, want)
	}
	data, err := os.ReadFile(record.StagingPath)
	if err != nil || string(data) != "jpeg bytes" {
		t.Fatalf("staged content = %q (err %v)", data, err)
	}
}

func TestImportFileNoOpWhenFileDeleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)

	outcome := env.importFile(context.Background(), &queue.Task{Type: queue.TypeImportImage, RelatedEntityID: 999})
	if !outcome.Success {
		t.Fatalf("expected no-op success, got %+v", outcome)
	}
}

func TestProcessImageRecordsDetailsAndEnqueuesLookups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	ctx := context.Background()

	lat, lon := 46.5, 7.98
	env.Media.(*stubMedia).image = media.ImageResult{Width: 800, Height: 600, Latitude: &lat, Longitude: &lon}
	// Non-nil clients mark the integrations enabled; the handler only
	// enqueues here, it never calls out.
	env.Geocoder = newNoopGeocoder()
	env.Classifier = newNoopClassifier()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/alps.jpg", "id:alps", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	if _, err := env.Library.Create(ctx, remote.ID, remote.Path); err != nil {
		t.Fatalf("create catalog row: %v", err)
	}
	staging := filepath.Join(cfg.Paths.StagingDir, strconv.FormatInt(remote.ID, 10)+".jpg")
	if err := os.WriteFile(staging, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write staging file: %v", err)
	}
	if err := env.Library.SetStagingPath(ctx, remote.ID, staging); err != nil {
		t.Fatalf("set staging path: %v", err)
	}

	outcome := env.processImage(ctx, &queue.Task{Type: queue.TypeProcessImage, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("process failed: %v", outcome.Err)
	}

	record, err := env.Library.ByRemoteFileID(ctx, remote.ID)
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}
	if record.Width != 800 || record.Height != 600 || !record.HasLocation() {
		t.Fatalf("unexpected record %+v", record)
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	types := make(map[queue.TaskType]bool)
	for _, task := range tasks {
		types[task.Type] = true
	}
	if !types[queue.TypeAddressLookup] || !types[queue.TypeSubjects] {
		t.Fatalf("expected enrichment tasks, got %v", types)
	}
	if types[queue.TypeElevation] || types[queue.TypeOCRGeneric] {
		t.Fatalf("disabled integrations must not enqueue, got %v", types)
	}
}

func TestProcessImageCorruptFileSkipsEnrichment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	env.Media.(*stubMedia).image = media.ImageResult{Corrupt: true}
	env.Geocoder = newNoopGeocoder()
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/bad.jpg", "id:bad", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	if _, err := env.Library.Create(ctx, remote.ID, remote.Path); err != nil {
		t.Fatalf("create catalog row: %v", err)
	}

	outcome := env.processImage(ctx, &queue.Task{Type: queue.TypeProcessImage, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("process failed: %v", outcome.Err)
	}
	record, err := env.Library.ByRemoteFileID(ctx, remote.ID)
	if err != nil || !record.Corrupt {
		t.Fatalf("expected corrupt flag, got %+v (err %v)", record, err)
	}
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("corrupt file must not enqueue enrichment, got %v", tasks)
	}
}

func TestRemoveArtifactsKeepsCurrentStagingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/clips/trip.mov", "id:trip", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	if _, err := env.Library.Create(ctx, remote.ID, remote.Path); err != nil {
		t.Fatalf("create catalog row: %v", err)
	}

	id := strconv.FormatInt(remote.ID, 10)
	original := filepath.Join(cfg.Paths.StagingDir, id+".mov")
	transcoded := filepath.Join(cfg.Paths.StagingDir, id+".web.mp4")
	still := filepath.Join(cfg.Paths.StagingDir, id+".still.jpg")
	for _, path := range []string{original, transcoded, still} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := env.Library.SetStagingPath(ctx, remote.ID, transcoded); err != nil {
		t.Fatalf("set staging path: %v", err)
	}

	outcome := env.removeArtifacts(ctx, &queue.Task{Type: queue.TypeRemoveArtifact, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("remove artifacts failed: %v", outcome.Err)
	}
	for _, path := range []string{transcoded, still} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("delivery asset %s must survive: %v", path, err)
		}
	}
	if _, err := os.Stat(original); !os.IsNotExist(err) {
		t.Fatalf("original %s should be gone (err %v)", original, err)
	}
}

func TestVideoEnrichmentSurvivesArtifactCleanup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"result":{"tags":[{"confidence":91.2,"tag":{"en":"mountain"}}]}}`)
	}))
	defer server.Close()
	env.Classifier = classify.NewClient(classify.Config{APIKey: "key", BaseURL: server.URL}, logging.NewNop())

	remote, err := store.CreateRemoteFile(ctx, 1, "/clips/hike.mov", "id:hike", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	file, err := env.Library.Create(ctx, remote.ID, remote.Path)
	if err != nil {
		t.Fatalf("create catalog row: %v", err)
	}

	id := strconv.FormatInt(remote.ID, 10)
	original := filepath.Join(cfg.Paths.StagingDir, id+".mov")
	transcoded := filepath.Join(cfg.Paths.StagingDir, id+".web.mp4")
	still := filepath.Join(cfg.Paths.StagingDir, id+".still.jpg")
	for _, path := range []string{original, transcoded, still} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := env.Library.SetStagingPath(ctx, remote.ID, transcoded); err != nil {
		t.Fatalf("set staging path: %v", err)
	}

	// Cleanup runs before the low-priority lookups; they read the still
	// frame, so it must still be there afterwards.
	if outcome := env.removeArtifacts(ctx, &queue.Task{Type: queue.TypeRemoveArtifact, RelatedEntityID: remote.ID}); !outcome.Success {
		t.Fatalf("remove artifacts failed: %v", outcome.Err)
	}
	outcome := env.subjectDetection(ctx, &queue.Task{Type: queue.TypeSubjects, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("subject detection after cleanup failed: %v", outcome.Err)
	}

	tags, err := env.Library.Tags(ctx, file.ID)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Label != "mountain" {
		t.Fatalf("unexpected tags %+v", tags)
	}
}

func TestRemoveFileErasesCatalogAndStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	env := newEnv(t, cfg, store)
	ctx := context.Background()

	remote, err := store.CreateRemoteFile(ctx, 1, "/photos/old.jpg", "id:old", "hash-1")
	if err != nil {
		t.Fatalf("create remote file: %v", err)
	}
	if _, err := env.Library.Create(ctx, remote.ID, remote.Path); err != nil {
		t.Fatalf("create catalog row: %v", err)
	}
	staged := filepath.Join(cfg.Paths.StagingDir, strconv.FormatInt(remote.ID, 10)+".jpg")
	if err := os.WriteFile(staged, []byte("x"), 0o644); err != nil {
		t.Fatalf("write staging file: %v", err)
	}

	outcome := env.removeFile(ctx, &queue.Task{Type: queue.TypeRemoveFile, RelatedEntityID: remote.ID})
	if !outcome.Success {
		t.Fatalf("remove file failed: %v", outcome.Err)
	}
	if record, err := env.Library.ByRemoteFileID(ctx, remote.ID); err != nil || record != nil {
		t.Fatalf("catalog row should be gone, got %v (err %v)", record, err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("staged file should be gone (err %v)", err)
	}
}
