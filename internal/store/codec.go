package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Xprriacst/google-maps-scraper/internal/model"
)

func encodeLead(rec model.ScoredRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	return data, eris.Wrap(err, "store: marshal lead")
}

// decodeLead returns nil for a payload that cannot be read, so a corrupt
// entry behaves like a miss.
func decodeLead(driver string, k Key, data []byte) *model.ScoredRecord {
	var rec model.ScoredRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		zap.L().Warn("store: corrupt lead ignored",
			zap.String("driver", driver),
			zap.String("key", k.String()),
			zap.Error(err),
		)
		return nil
	}
	return &rec
}

func encodeStats(s *model.RunStats) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	return data, eris.Wrap(err, "store: marshal run stats")
}

func decodeStats(data []byte) (*model.RunStats, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s model.RunStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal run stats")
	}
	return &s, nil
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
