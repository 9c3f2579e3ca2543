package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/IamTinashe/personal-assistant-agent/pkg/adapter"
	"github.com/IamTinashe/personal-assistant-agent/pkg/assistant"
	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	fsstore "github.com/IamTinashe/personal-assistant-agent/pkg/memory/firestore"
	"github.com/IamTinashe/personal-assistant-agent/pkg/memory/local"
	"github.com/IamTinashe/personal-assistant-agent/pkg/orchestrator"
	"github.com/IamTinashe/personal-assistant-agent/pkg/preprocess"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/notes"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/reminder"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/tasks"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	logLevel string
	dataDir  string

	// LLM
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Memory
	storeKind         string
	storePath         string
	dimension         int64
	indexKind         string
	firestoreProject  string
	firestoreDatabase string

	// Preprocessing
	intentPatternFile string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ASSISTANT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory for skill and memory data",
			Value:       "./data",
			Sources:     cli.EnvVars("ASSISTANT_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "intent-patterns",
			Usage:       "YAML file with extra intent patterns",
			Sources:     cli.EnvVars("ASSISTANT_INTENT_PATTERNS"),
			Destination: &cfg.intentPatternFile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Model for response generation",
			Sources:     cli.EnvVars("ASSISTANT_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Model for embeddings",
			Sources:     cli.EnvVars("ASSISTANT_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// memoryFlags returns flags for the memory store with destination config
func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Memory store backend (local, firestore)",
			Value:       "local",
			Sources:     cli.EnvVars("ASSISTANT_STORE"),
			Destination: &cfg.storeKind,
		},
		&cli.StringFlag{
			Name:        "store-path",
			Usage:       "Directory for the local vector store",
			Sources:     cli.EnvVars("ASSISTANT_STORE_PATH"),
			Destination: &cfg.storePath,
		},
		&cli.IntFlag{
			Name:        "dimension",
			Usage:       "Embedding dimension",
			Value:       3072,
			Sources:     cli.EnvVars("ASSISTANT_DIMENSION"),
			Destination: &cfg.dimension,
		},
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Local index kind (flat, ivf, graph)",
			Value:       "flat",
			Sources:     cli.EnvVars("ASSISTANT_INDEX"),
			Destination: &cfg.indexKind,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
	}
}

// setupLogging attaches a configured logger to the context.
func (cfg *config) setupLogging(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newStore creates the configured memory store
func (cfg *config) newStore() (memory.Store, error) {
	switch cfg.storeKind {
	case "local", "":
		path := cfg.storePath
		if path == "" {
			path = filepath.Join(cfg.dataDir, "vector_store")
		}
		return local.New(int(cfg.dimension), path, local.WithIndexKind(local.IndexKind(cfg.indexKind))), nil

	case "firestore":
		if cfg.firestoreProject == "" {
			return nil, goerr.New("firestore-project is required")
		}
		return fsstore.New(cfg.firestoreProject, cfg.firestoreDatabase, int(cfg.dimension)), nil

	default:
		return nil, goerr.New("unknown store backend", goerr.V("store", cfg.storeKind))
	}
}

// newManager builds the memory manager over the configured store
func (cfg *config) newManager(gemini adapter.Gemini) (*memory.Manager, error) {
	store, err := cfg.newStore()
	if err != nil {
		return nil, err
	}
	return memory.NewManager(store, gemini.Embedding, int(cfg.dimension)), nil
}

// newAssistant wires the full pipeline: preprocessor, skills, memory,
// and the model adapter.
func (cfg *config) newAssistant(ctx context.Context) (*assistant.Assistant, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	mgr, err := cfg.newManager(gemini)
	if err != nil {
		return nil, err
	}

	var preOpts []preprocess.Option
	if cfg.intentPatternFile != "" {
		extra, err := preprocess.LoadIntentPatterns(cfg.intentPatternFile)
		if err != nil {
			return nil, err
		}
		preOpts = append(preOpts, preprocess.WithIntentPatterns(extra))
	}
	pre, err := preprocess.New(preOpts...)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New()
	orch.Register(ctx, reminder.New(filepath.Join(cfg.dataDir, "reminders.json")))
	orch.Register(ctx, notes.New(filepath.Join(cfg.dataDir, "notes.json")))
	orch.Register(ctx, tasks.New(filepath.Join(cfg.dataDir, "tasks.json")))

	a := assistant.New(gemini, mgr, pre, orch)
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}
