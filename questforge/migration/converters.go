// converters.go
package migration

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fablesmith/questforge/questforge/database/models"
)

// legacyAttrNames maps the long attribute keys the old system stored to the
// short keys dice checks resolve against. Already-short keys pass through.
var legacyAttrNames = map[string]string{
	"strength":  models.AttrStrength,
	"agility":   models.AttrAgility,
	"intellect": models.AttrIntellect,
	"charisma":  models.AttrCharisma,
}

func (m *Migrator) convertHero(mh MongoHero) *models.Hero {
	now := time.Now()

	hp := int(mh.HP)
	maxHP := int(mh.MaxHP)
	if maxHP <= 0 {
		maxHP = 100
	}
	if hp < 0 {
		hp = 0
	}
	if hp > maxHP {
		hp = maxHP
	}

	return &models.Hero{
		UserID:     mh.UserID,
		Name:       cleanseString(mh.Name),
		HP:         hp,
		MaxHP:      maxHP,
		Attributes: convertAttributes(mh.Attributes),
		WorldFlags: convertFlags(mh.Flags),
		Reputation: convertIntMap(mh.Reputation),
		ChainSteps: map[string]int{},
		Items:      convertItems(mh.Items),
		Metrics:    map[string]int{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func convertQuestRecord(mq MongoQuestRecord) *models.LegacyQuestRecord {
	completedAt := mq.Created
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	return &models.LegacyQuestRecord{
		UserID:      mq.UserID,
		QuestID:     mq.QuestID,
		CompletedAt: completedAt,
		ImportedAt:  time.Now(),
	}
}

func convertAttributes(attrs map[string]float64) map[string]int {
	out := make(map[string]int, len(attrs))
	for k, v := range attrs {
		key := strings.ToLower(strings.TrimSpace(k))
		if short, ok := legacyAttrNames[key]; ok {
			key = short
		}
		if key == "" {
			continue
		}
		out[key] = int(v)
	}
	return out
}

func convertIntMap(in map[string]float64) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = int(v)
	}
	return out
}

// convertFlags narrows BSON doubles to ints so flag values round-trip the
// same way the engine writes them. Everything else passes through.
func convertFlags(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if k == "" {
			continue
		}
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[k] = int(f)
			continue
		}
		out[k] = v
	}
	return out
}

func convertItems(items []MongoHeroItem) map[string]int {
	out := make(map[string]int, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		amount := int(it.Amount)
		if amount <= 0 {
			amount = 1
		}
		out[it.ID] += amount
	}
	return out
}

// cleanseString strips null bytes and control characters from legacy text
// fields. Invalid UTF-8 sequences are dropped rune by rune.
func cleanseString(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		if r == utf8.RuneError || r == 0 || (r < 32 && r != 9 && r != 10 && r != 13) {
			continue
		}
		result.WriteRune(r)
	}

	return strings.TrimSpace(result.String())
}
