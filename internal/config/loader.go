package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadSettings reads the settings file at path.
// A missing file yields the default settings. Invalid entries are logged and skipped.
func LoadSettings(path string, log logger.Logger) (*Settings, error) {
	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read settings")
	}

	return ParseSettings(payload, log)
}

// ParseSettings parses a YAML settings document.
func ParseSettings(payload []byte, log logger.Logger) (*Settings, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(payload, &document); err != nil {
		return nil, errors.Wrap(err, "could not parse settings")
	}

	p := &parser{log: log.WithPrefix("[config]")}
	settings := DefaultSettings()

	root := &document
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return settings, nil
	}

	for _, upgrade := range p.entries(lookup(root, "upgrades")) {
		kind, ok := model.ParseUpgradeKind(upgrade.key)
		if !ok {
			p.log.Warnf("Unknown upgrade '%s', skipping", upgrade.key)
			continue
		}
		if upgrade.value.Kind != yaml.MappingNode {
			continue
		}

		settings.Upgrades[kind] = UpgradeEntry{
			Enabled: p.boolean(lookup(upgrade.value, "enabled"), true),
			Costs:   p.costs(upgrade.key, lookup(upgrade.value, "costs")),
		}

		switch kind {
		case model.Capacity:
			settings.Capacity = p.capacity(upgrade.value)
		case model.AutoSort:
			p.autoSort(upgrade.value)
		case model.Filtering:
			settings.Filter = p.filter(upgrade.value)
		case model.Compression:
			settings.Compression = p.compression(upgrade.value)
		}
	}

	settings.Limits = p.limits(lookup(root, "limits"))
	settings.Deposit = DepositSettings{
		Overflow: model.ParseOverflowPolicy(p.str(lookup(lookup(root, "deposit"), "overflow-behavior"), ""), model.Return),
	}

	for _, entry := range p.entries(lookup(lookup(root, "items"), "stack-sizes")) {
		t, ok := model.ParseItemType(entry.key)
		if !ok {
			p.log.Warnf("Unknown item '%s' in stack sizes, skipping", entry.key)
			continue
		}
		n := p.integer(entry.value, 0)
		if n <= 0 {
			p.log.Warnf("Invalid stack size '%s' for '%s', skipping", entry.value.Value, entry.key)
			continue
		}
		settings.StackSizes[t] = n
	}

	return settings, nil
}

//
// Sections
//

type parser struct {
	log logger.Logger
}

func (p *parser) capacity(section *yaml.Node) CapacityTable {
	return CapacityTable{
		Levels:   p.levels(lookup(section, "levels")),
		Single:   p.levels(lookup(section, "single-levels")),
		Double:   p.levels(lookup(section, "double-levels")),
		MaxSlots: p.integer(lookup(section, "max-slots"), -1),
	}
}

// levels reads `level: slots` or `level: {slots: n}` entries.
func (p *parser) levels(section *yaml.Node) map[int]int {
	levels := map[int]int{}
	for _, entry := range p.entries(section) {
		level, err := strconv.Atoi(entry.key)
		if err != nil {
			p.log.Warnf("Invalid capacity level key '%s', expected a number", entry.key)
			continue
		}

		value := entry.value
		if value.Kind == yaml.MappingNode {
			value = lookup(value, "slots")
		}
		slots := p.integer(value, 0)
		if slots <= 0 {
			p.log.Warnf("Capacity level '%s' has an invalid slot count", entry.key)
			continue
		}
		levels[level] = slots
	}
	return levels
}

// autoSort checks the strategy: stacks are always sorted alphabetically.
func (p *parser) autoSort(section *yaml.Node) {
	switch raw := strings.ToLower(p.str(lookup(section, "strategy"), "alphabetical")); raw {
	case "alphabet", "alphabetical", "alpha":
	case "":
		p.log.Warn("Auto-sort strategy was blank, defaulting to alphabetical")
	default:
		p.log.Warnf("Unknown auto-sort strategy '%s', defaulting to alphabetical", raw)
	}
}

func (p *parser) filter(section *yaml.Node) FilterSettings {
	return FilterSettings{
		DefaultMode: model.ParseFilterMode(p.str(lookup(section, "default-mode"), ""), model.Whitelist),
		Overflow:    model.ParseOverflowPolicy(p.str(lookup(section, "overflow-behavior"), ""), model.Return),
		MaxEntries:  max(0, p.integer(lookup(section, "max-entries"), 27)),
	}
}

func (p *parser) compression(section *yaml.Node) CompressionSettings {
	settings := CompressionSettings{
		Overflow: model.ParseOverflowPolicy(p.str(lookup(section, "overflow-behavior"), ""), model.Return),
	}

	for _, entry := range p.entries(lookup(section, "recipes")) {
		input, ok := model.ParseItemType(entry.key)
		if !ok {
			p.log.Warnf("Unknown compression input '%s'", entry.key)
			continue
		}
		output, ok := model.ParseItemType(p.str(entry.value, ""))
		if !ok {
			p.log.Warnf("Unknown compression output for '%s'", entry.key)
			continue
		}
		settings.Recipes = append(settings.Recipes, Recipe{Input: input, Output: output})
	}
	return settings
}

func (p *parser) costs(upgrade string, section *yaml.Node) map[int]Cost {
	costs := map[int]Cost{}
	for _, entry := range p.entries(section) {
		level, err := strconv.Atoi(entry.key)
		if err != nil {
			p.log.Warnf("Invalid level '%s' in upgrade '%s', expected a number", entry.key, upgrade)
			continue
		}
		costs[level] = p.cost(upgrade, level, entry.value)
	}

	if len(costs) == 0 {
		p.log.Warnf("No costs configured for upgrade '%s', defaulting to free", upgrade)
	}
	return costs
}

func (p *parser) cost(upgrade string, level int, section *yaml.Node) Cost {
	if section == nil || section.Kind != yaml.MappingNode {
		return Cost{}
	}

	t := ParseCostType(p.str(lookup(section, "type"), "economy"))
	amount := p.float(lookup(section, "amount"), 0)
	xpDefault := 0
	if t == XP {
		xpDefault = int(amount)
	}
	xp := p.integer(lookup(section, "xp-levels"), xpDefault)

	var items []ItemCost
	for _, entry := range p.entries(lookup(section, "items")) {
		it, ok := model.ParseItemType(entry.key)
		if !ok {
			p.log.Warnf("Unknown item '%s' in upgrade '%s' level %d items cost, skipping", entry.key, upgrade, level)
			continue
		}
		items = append(items, ItemCost{Type: it, Amount: max(1, p.integer(entry.value, 1))})
	}

	var cost Cost
	switch t {
	case Items:
		cost = Cost{Type: Items, Items: items}
	case XP:
		cost = Cost{Type: XP, XPLevels: max(0, xp)}
	case Mixed:
		cost = Cost{Type: Mixed, Economy: max(0, amount), XPLevels: max(0, xp), Items: items}
	default:
		cost = Cost{Type: Economy, Economy: max(0, amount)}
	}

	if cost.IsFree() {
		p.log.Warnf("Upgrade '%s' level %d has a zero or empty cost, treating as free", upgrade, level)
	}
	return cost
}

func (p *parser) limits(section *yaml.Node) LimitSettings {
	if !p.boolean(lookup(section, "enabled"), false) {
		return LimitSettings{}
	}

	var ranks []Rank
	for _, entry := range p.entries(lookup(section, "ranks")) {
		if entry.value.Kind != yaml.MappingNode {
			continue
		}

		rank := Rank{
			Key:               entry.key,
			Permission:        p.str(lookup(entry.value, "permission"), ""),
			Bypass:            p.boolean(lookup(entry.value, "bypass-limits"), false),
			MaxUpgradedChests: p.integer(lookup(entry.value, "max-upgraded-chests"), -1),
			MaxLevels:         map[model.UpgradeKind]int{},
		}
		for _, level := range p.entries(lookup(entry.value, "max-levels")) {
			kind, ok := model.ParseUpgradeKind(level.key)
			if !ok {
				p.log.Warnf("Unknown upgrade type '%s' in limits for '%s'", level.key, entry.key)
				continue
			}
			if n := p.integer(level.value, -1); n > 0 {
				rank.MaxLevels[kind] = n
			}
		}
		ranks = append(ranks, rank)
	}

	return LimitSettings{
		Enabled: len(ranks) > 0,
		Ranks:   ranks,
	}
}

//
// Node helpers
//

type entry struct {
	key   string
	value *yaml.Node
}

// entries returns the pairs of a mapping node in document order.
func (p *parser) entries(node *yaml.Node) []entry {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}

	entries := make([]entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entries = append(entries, entry{
			key:   node.Content[i].Value,
			value: node.Content[i+1],
		})
	}
	return entries
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func (p *parser) integer(node *yaml.Node, def int) int {
	if node == nil {
		return def
	}
	var v int
	if err := node.Decode(&v); err != nil {
		p.log.Warnf("Line %d: expected a number, got '%s'", node.Line, node.Value)
		return def
	}
	return v
}

func (p *parser) float(node *yaml.Node, def float64) float64 {
	if node == nil {
		return def
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		p.log.Warnf("Line %d: expected a number, got '%s'", node.Line, node.Value)
		return def
	}
	return v
}

func (p *parser) boolean(node *yaml.Node, def bool) bool {
	if node == nil {
		return def
	}
	var v bool
	if err := node.Decode(&v); err != nil {
		p.log.Warnf("Line %d: expected a boolean, got '%s'", node.Line, node.Value)
		return def
	}
	return v
}

func (p *parser) str(node *yaml.Node, def string) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return def
	}
	return strings.TrimSpace(node.Value)
}
