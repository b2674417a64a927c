package smartlaunch

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/report"
	"rider.badgertransit.org/internal/storage"
	"rider.badgertransit.org/internal/utils"
)

// RulesKey is the storage key holding the rule list.
const RulesKey = "bt_smart_launch_rules"

// RuleStore loads and saves the whole ordered rule list. Neither operation
// fails from the caller's point of view.
type RuleStore interface {
	LoadRules() []models.GeofenceRule
	SaveRules(rules []models.GeofenceRule)
}

// KVRuleStore keeps the rule list as a JSON array in a storage.KV.
type KVRuleStore struct {
	kv     storage.KV
	logger *slog.Logger
}

func NewKVRuleStore(kv storage.KV, logger *slog.Logger) *KVRuleStore {
	return &KVRuleStore{kv: kv, logger: logger}
}

// LoadRules returns the stored rules in order. Missing or corrupt data yields
// an empty list; individual entries that fail to decode are dropped.
func (s *KVRuleStore) LoadRules() []models.GeofenceRule {
	data, err := s.kv.Get(RulesKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read smartlaunch rules", "error", err)
		}
		return []models.GeofenceRule{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("stored smartlaunch rules are not a list, ignoring", "error", err)
		return []models.GeofenceRule{}
	}

	rules := make([]models.GeofenceRule, 0, len(raw))
	for i, entry := range raw {
		var rule models.GeofenceRule
		if err := json.Unmarshal(entry, &rule); err != nil {
			s.logger.Warn("dropping malformed smartlaunch rule", "index", i, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// SaveRules writes the full list. Failures are logged and reported only.
func (s *KVRuleStore) SaveRules(rules []models.GeofenceRule) {
	if rules == nil {
		rules = []models.GeofenceRule{}
	}

	data, err := json.Marshal(rules)
	if err == nil {
		err = s.kv.Set(RulesKey, data)
	}
	if err != nil {
		s.logger.Error("failed to save smartlaunch rules", "error", err, "count", len(rules))
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Component: "rule_store",
			Tags:      utils.MakeMap("key", RulesKey),
			ExtraContext: map[string]interface{}{
				"rule_count": len(rules),
			},
			Level: sentry.LevelWarning,
		})
	}
}
