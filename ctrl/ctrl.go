package ctrl

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/kataras/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tcsec/vulncases/api"
	"github.com/tcsec/vulncases/llm"
	"github.com/tcsec/vulncases/push"
	"github.com/tcsec/vulncases/schema"
	"github.com/tcsec/vulncases/store"
)

const shutdownTimeout = 5 * time.Second

// App assembles the HTTP server with its collaborators: the document store,
// the structured-generation service and the optional webhook pusher.
type App struct {
	config *Config
	store  *store.Mongo
	server *api.Server
	log    *golog.Logger
}

// NewApp wires the application. The LLM client is constructed here so a
// missing credential fails the process at startup, not on the first
// generate request.
func NewApp(config *Config) (*App, error) {
	config.Init()

	st := store.NewMongo(config.MongoURI, config.DBName, config.Collection)
	timeout := time.Duration(config.GeminiTimeoutSeconds) * time.Second
	client, err := llm.NewClient(context.Background(), config.GeminiAPIKey, config.GeminiModel, timeout)
	if err != nil {
		return nil, err
	}

	var pusher push.RawPusher
	if config.WebhookURL != "" {
		pusher = push.NewWebhook(config.WebhookURL)
	}
	server := api.NewServer(st, llm.NewService(client), pusher)

	return &App{
		config: config,
		store:  st,
		server: server,
		log:    golog.Child("[ctrl]"),
	}, nil
}

// Run serves until the context is canceled, then shuts the listener down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infof("serving test case API on %s", a.config.Addr)
		if err := a.server.Start(a.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warnf("closing store: %s", err)
	}
}

// Setup ensures the unique vuln_id index and loads the sample test cases,
// if the sample file exists. It runs without the LLM client so no API key
// is needed.
func Setup(ctx context.Context, config *Config) error {
	config.Init()
	log := golog.Child("[setup]")

	st := store.NewMongo(config.MongoURI, config.DBName, config.Collection)
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnf("closing store: %s", err)
		}
	}()

	if err := st.EnsureIndex(ctx); err != nil {
		return errors.Wrap(err, "ensure index")
	}

	records, err := loadSampleRecords(config.SampleFile, log)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Warnf("no valid test cases found in sample")
		return nil
	}

	inserted, err := st.InsertMany(ctx, records)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			log.Warnf("some sample docs already exist: %s", conflict)
		} else {
			return errors.Wrap(err, "insert sample docs")
		}
	}
	log.Infof("inserted %d sample docs", inserted)
	return nil
}

// loadSampleRecords reads a {"test_cases": [...]} file and validates each
// entry through the record schema, skipping invalid ones with a warning.
func loadSampleRecords(path string, log *golog.Logger) ([]*schema.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnf("sample file not found: %s", path)
			return nil, nil
		}
		return nil, errors.Wrap(err, "read sample file")
	}
	var wrapper struct {
		TestCases []map[string]any `json:"test_cases"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.Wrap(err, "parse sample file")
	}
	records := make([]*schema.TestCase, 0, len(wrapper.TestCases))
	for _, item := range wrapper.TestCases {
		tc, err := schema.LoadRecord(item)
		if err != nil {
			log.Warnf("skipping invalid sample entry: %s", err)
			continue
		}
		records = append(records, tc)
	}
	return records, nil
}
