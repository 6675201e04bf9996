package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvance(t *testing.T) {
	c := Clock{Day: 1, Minutes: 23*60 + 50}

	c = c.Advance(15)
	assert.Equal(t, 2, c.Day, "advancing past midnight should roll the day")
	assert.Equal(t, 5, c.Minutes)

	c = c.Advance(-30)
	assert.Equal(t, 5, c.Minutes, "negative advance should be ignored")

	c = c.Advance(0)
	assert.Equal(t, 5, c.Minutes)
}

func TestClockPeriod(t *testing.T) {
	cases := []struct {
		minutes int
		period  string
	}{
		{2 * 60, "night"},
		{8 * 60, "morning"},
		{13 * 60, "afternoon"},
		{19 * 60, "evening"},
		{23 * 60, "night"},
	}
	for _, tc := range cases {
		c := Clock{Day: 1, Minutes: tc.minutes}
		assert.Equal(t, tc.period, c.Period(), "minutes=%d", tc.minutes)
	}
}

func TestClockString(t *testing.T) {
	c := Clock{Day: 3, Minutes: 9*60 + 5}
	assert.Equal(t, "day 3, 09:05", c.String())
}

func TestParseRefs(t *testing.T) {
	text := "You wave at [greta:the barkeep] and pick up the [clay_mug:chipped mug]."

	refs := ParseRefs(text)
	if assert.Len(t, refs, 2) {
		assert.Equal(t, "greta", refs[0].Key)
		assert.Equal(t, "the barkeep", refs[0].Display)
		assert.Equal(t, "clay_mug", refs[1].Key)
		assert.Equal(t, "chipped mug", refs[1].Display)
	}

	assert.Nil(t, ParseRefs("no references here"))
}

func TestStripRefs(t *testing.T) {
	text := "You wave at [greta:the barkeep]."
	assert.Equal(t, "You wave at the barkeep.", StripRefs(text))

	// Malformed references pass through untouched.
	broken := "You wave at [Greta the barkeep."
	assert.Equal(t, broken, StripRefs(broken))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("rusty_lantern"))
	assert.True(t, ValidKey("npc_2"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("Rusty"))
	assert.False(t, ValidKey("rusty lantern"))
	assert.False(t, ValidKey("rusty-lantern"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "rusty_lantern", Slugify("Rusty Lantern"))
	assert.Equal(t, "gretas_brass_key", Slugify("  Greta's Brass Key! "))
	assert.Equal(t, "cellar", Slugify("cellar"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestManifestValidity(t *testing.T) {
	m := NewManifest("common_room", "Common Room")
	m.AddEntity("greta", "Greta", EntityNPC)
	m.AddExit("cellar")
	m.AddCandidateLocation("harbor_street")

	assert.True(t, m.IsValid("greta"))
	assert.True(t, m.IsValid(PlayerKey), "player key is always valid")
	assert.True(t, m.IsValid("common_room"), "current location is always valid")
	assert.False(t, m.IsValid("ghost"))

	m.Allow("ghost")
	assert.True(t, m.IsValid("ghost"), "allowed keys become valid after repair")

	assert.True(t, m.LegalDestination("cellar"))
	assert.True(t, m.LegalDestination("harbor_street"))
	assert.False(t, m.LegalDestination("moon"))
}

func TestManifestSortedViews(t *testing.T) {
	m := NewManifest("common_room", "Common Room")
	m.AddEntity("greta", "Greta", EntityNPC)
	m.AddEntity("clay_mug", "Clay Mug", EntityItem)
	m.Allow("greta") // duplicate of a known entity
	m.Allow("stranger")
	m.AddExit("kitchen")
	m.AddExit("cellar")
	m.AddCandidateLocation("cellar") // duplicate of an exit
	m.AddCandidateLocation("harbor_street")

	assert.Equal(t, []string{"clay_mug", "greta", "stranger"}, m.KnownKeys())
	assert.Equal(t, []string{"cellar", "harbor_street", "kitchen"}, m.Destinations())
}

func TestNeedHelpers(t *testing.T) {
	assert.True(t, ValidNeed("thirst"))
	assert.True(t, ValidNeed(" Sleep_Pressure "))
	assert.False(t, ValidNeed("mana"))

	need, ok := NeedForActivity("drink")
	assert.True(t, ok)
	assert.Equal(t, NeedThirst, need)

	_, ok = NeedForActivity("juggle")
	assert.False(t, ok)

	assert.Equal(t, 0, ClampNeed(-5))
	assert.Equal(t, 100, ClampNeed(140))
	assert.Equal(t, 42, ClampNeed(42))
}

func TestNormalizeFactCategory(t *testing.T) {
	c, remapped := NormalizeFactCategory("secret")
	assert.Equal(t, FactSecret, c)
	assert.False(t, remapped)

	c, remapped = NormalizeFactCategory("Quest")
	assert.Equal(t, FactPersonal, c)
	assert.True(t, remapped)

	c, remapped = NormalizeFactCategory("nonsense")
	assert.Equal(t, FactPersonal, c, "unknown categories default to personal")
	assert.True(t, remapped)
}

func TestNormalizeEntityType(t *testing.T) {
	et, remapped := NormalizeEntityType("npc")
	assert.Equal(t, EntityNPC, et)
	assert.False(t, remapped)

	et, remapped = NormalizeEntityType("Creature")
	assert.Equal(t, EntityNPC, et)
	assert.True(t, remapped)

	et, remapped = NormalizeEntityType("widget")
	assert.Equal(t, EntityItem, et, "unknown types default to item")
	assert.True(t, remapped)
}

func TestScenarioValidate(t *testing.T) {
	sc := &Scenario{
		Name:          "Test",
		StartLocation: "tavern",
		Locations: []Location{
			{Key: "tavern", DisplayName: "Tavern", Exits: []string{"cellar"}},
			{Key: "cellar", DisplayName: "Cellar", Exits: []string{"tavern"}},
		},
		Entities: []Entity{
			{Key: "greta", DisplayName: "Greta", Type: EntityNPC, LocationKey: "tavern"},
		},
		Items: []Item{
			{Key: "mug", DisplayName: "Mug", HolderKey: "greta"},
			{Key: "coat", DisplayName: "Coat", HolderKey: "player"},
		},
		PlayerNeeds: map[string]int{"thirst": 40},
	}
	assert.Empty(t, sc.Validate())
}

func TestScenarioValidateReportsAllProblems(t *testing.T) {
	sc := &Scenario{
		Name:          "Broken",
		StartLocation: "nowhere",
		Locations: []Location{
			{Key: "tavern", Exits: []string{"void"}},
			{Key: "tavern"},
		},
		Entities: []Entity{
			{Key: "player", Type: EntityNPC},
			{Key: "ghost", Type: "spirit", LocationKey: "attic"},
		},
		Items: []Item{
			{Key: "mug", HolderKey: "nobody"},
		},
		PlayerNeeds: map[string]int{"mana": 120},
	}

	problems := sc.Validate()
	joined := ""
	for _, p := range problems {
		joined += p + "\n"
	}
	assert.Contains(t, joined, "start_location")
	assert.Contains(t, joined, "duplicate location key")
	assert.Contains(t, joined, "undefined location \"void\"")
	assert.Contains(t, joined, "reserved")
	assert.Contains(t, joined, "unknown type")
	assert.Contains(t, joined, "unknown holder")
	assert.Contains(t, joined, "unknown player need")
}
