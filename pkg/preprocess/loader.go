package preprocess

import (
	"os"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// patternFile is the on-disk format for user-supplied intent patterns:
//
//	patterns:
//	  set_reminder:
//	    - "ping\\s+me"
//	  create_note:
//	    - "scribble"
type patternFile struct {
	Patterns map[string][]string `yaml:"patterns"`
}

// LoadIntentPatterns reads extra intent patterns from a YAML file. The
// result merges over the built-in table via WithIntentPatterns. Unknown
// intent names are rejected so typos do not silently vanish.
func LoadIntentPatterns(path string) (map[model.IntentType][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read intent pattern file", goerr.V("path", path))
	}

	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse intent pattern file", goerr.V("path", path))
	}

	extra := make(map[model.IntentType][]string, len(file.Patterns))
	for name, sources := range file.Patterns {
		intent := model.IntentType(name)
		if err := intent.Validate(); err != nil {
			return nil, goerr.Wrap(err, "unknown intent in pattern file", goerr.V("intent", name))
		}
		extra[intent] = sources
	}

	return extra, nil
}
