package merge

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Xprriacst/google-maps-scraper/internal/source"
)

// MaxTitleKeywords bounds how many target titles earn a seniority bonus.
const MaxTitleKeywords = 20

// Weights are the point values used to rank candidates. They must keep
// the ordering tier > title match > email confidence > social presence.
type Weights struct {
	TierBase  int `yaml:"tier_base"`
	TitleBase int `yaml:"title_base"`
	TitleStep int `yaml:"title_step"`
	HighEmail int `yaml:"high_email"`
	Social    int `yaml:"social"`
}

// DefaultWeights returns the built-in ranking weights.
func DefaultWeights() Weights {
	return Weights{
		TierBase:  1000,
		TitleBase: 100,
		TitleStep: 10,
		HighEmail: 20,
		Social:    5,
	}
}

// Validate checks that no lower-priority signal can outweigh a higher one.
func (w Weights) Validate() error {
	if w.Social <= 0 || w.HighEmail <= 0 || w.TitleBase <= 0 || w.TitleStep < 0 || w.TierBase <= 0 {
		return eris.New("merge: ranking weights must be positive")
	}
	if w.HighEmail <= w.Social {
		return eris.Errorf("merge: high_email (%d) must exceed social (%d)", w.HighEmail, w.Social)
	}
	if w.TitleBase <= w.HighEmail+w.Social {
		return eris.Errorf("merge: title_base (%d) must exceed high_email + social (%d)", w.TitleBase, w.HighEmail+w.Social)
	}
	maxWithinTier := w.TitleBase + w.TitleStep*MaxTitleKeywords + w.HighEmail + w.Social
	if w.TierBase <= maxWithinTier {
		return eris.Errorf("merge: tier_base (%d) must exceed the largest in-tier score (%d)", w.TierBase, maxWithinTier)
	}
	return nil
}

// LoadWeights reads ranking weights from a YAML file with a top-level
// "ranking" key. Missing keys keep their defaults.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, eris.Wrapf(err, "merge: read ranking %s", path)
	}

	wrapper := struct {
		Ranking Weights `yaml:"ranking"`
	}{Ranking: DefaultWeights()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Weights{}, eris.Wrap(err, "merge: parse ranking")
	}
	if err := wrapper.Ranking.Validate(); err != nil {
		return Weights{}, err
	}
	return wrapper.Ranking, nil
}

func (w Weights) tierScore(t source.Tier) int {
	return w.TierBase * (len(source.Tiers) - int(t))
}

func (w Weights) titleScore(index, targets int) int {
	if targets > MaxTitleKeywords {
		targets = MaxTitleKeywords
	}
	steps := targets - index
	if steps < 0 {
		steps = 0
	}
	return w.TitleBase + w.TitleStep*steps
}
