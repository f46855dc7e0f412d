package seed

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Account is a fixed, known login created before the generated users.
type Account struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// Preset describes the size and shape of a seeded data set.
type Preset struct {
	Name               string    `yaml:"name"`
	Accounts           []Account `yaml:"accounts"`
	Users              int       `yaml:"users"`
	PodcastsPerUser    int       `yaml:"podcasts_per_user"`
	FollowsPerUser     int       `yaml:"follows_per_user"`
	LikesPerPodcast    int       `yaml:"likes_per_podcast"`
	CommentsPerPodcast int       `yaml:"comments_per_podcast"`
}

var demoAccounts = []Account{
	{Username: "demo", Email: "demo@example.com", FirstName: "Demo", LastName: "User"},
	{Username: "host", Email: "host@example.com", FirstName: "Podcast", LastName: "Host"},
}

// Presets are the built-in data sets selectable by name.
var Presets = map[string]Preset{
	"minimal": {
		Name:               "minimal",
		Accounts:           demoAccounts,
		Users:              5,
		PodcastsPerUser:    1,
		FollowsPerUser:     2,
		LikesPerPodcast:    2,
		CommentsPerPodcast: 1,
	},
	"default": {
		Name:               "default",
		Accounts:           demoAccounts,
		Users:              25,
		PodcastsPerUser:    3,
		FollowsPerUser:     6,
		LikesPerPodcast:    5,
		CommentsPerPodcast: 3,
	},
	"populated": {
		Name:               "populated",
		Accounts:           demoAccounts,
		Users:              200,
		PodcastsPerUser:    5,
		FollowsPerUser:     25,
		LikesPerPodcast:    20,
		CommentsPerPodcast: 8,
	},
}

// PresetNames lists the built-in presets in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParsePreset decodes a YAML preset. Unknown keys are rejected.
func ParsePreset(data []byte) (Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// LoadPreset resolves ref as a built-in preset name, or else as a YAML file path.
func LoadPreset(ref string) (Preset, error) {
	if p, ok := Presets[ref]; ok {
		return p, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %q is neither built in (%s) nor a readable file: %w",
			ref, strings.Join(PresetNames(), ", "), err)
	}
	return ParsePreset(data)
}

// Validate rejects negative sizes and incomplete fixed accounts.
func (p Preset) Validate() error {
	for name, n := range map[string]int{
		"users":                p.Users,
		"podcasts_per_user":    p.PodcastsPerUser,
		"follows_per_user":     p.FollowsPerUser,
		"likes_per_podcast":    p.LikesPerPodcast,
		"comments_per_podcast": p.CommentsPerPodcast,
	} {
		if n < 0 {
			return fmt.Errorf("preset %s must not be negative", name)
		}
	}
	seen := map[string]bool{}
	for _, a := range p.Accounts {
		if a.Username == "" || a.Email == "" {
			return errors.New("preset account needs username and email")
		}
		if seen[a.Username] {
			return fmt.Errorf("preset account %q listed twice", a.Username)
		}
		seen[a.Username] = true
	}
	return nil
}
