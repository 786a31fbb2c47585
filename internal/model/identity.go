package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Identity is a normalized Riot ID plus the platform it plays on.
type Identity struct {
	Name   string `json:"gameName"`
	Tag    string `json:"tagLine"`
	Region string `json:"region"`
}

// NewIdentity trims and lowercases each part so casing and stray whitespace
// never produce a second key for the same player.
func NewIdentity(name, tag, region string) Identity {
	return Identity{
		Name:   strings.ToLower(strings.TrimSpace(name)),
		Tag:    strings.ToLower(strings.TrimSpace(tag)),
		Region: strings.ToLower(strings.TrimSpace(region)),
	}
}

// Hash is the primary key for checkpoints and cached results.
func (id Identity) Hash() string {
	n := NewIdentity(id.Name, id.Tag, id.Region)
	sum := sha256.Sum256([]byte(n.Name + "#" + n.Tag + "#" + n.Region))
	return hex.EncodeToString(sum[:])
}

func (id Identity) String() string {
	return fmt.Sprintf("%s#%s (%s)", id.Name, id.Tag, id.Region)
}

// Validate applies the Riot ID length rules and checks the platform code.
func (id Identity) Validate() error {
	var problems []string
	switch n := utf8.RuneCountInString(id.Name); {
	case n == 0:
		problems = append(problems, "game name is required")
	case n < 3:
		problems = append(problems, "game name must be at least 3 characters")
	case n > 16:
		problems = append(problems, "game name must be 16 characters or less")
	}
	switch n := utf8.RuneCountInString(id.Tag); {
	case n == 0:
		problems = append(problems, "tag line is required")
	case n < 2:
		problems = append(problems, "tag line must be at least 2 characters")
	case n > 5:
		problems = append(problems, "tag line must be 5 characters or less")
	}
	if id.Region == "" {
		problems = append(problems, "region is required")
	} else if _, ok := PlatformToRegional[id.Region]; !ok {
		problems = append(problems, fmt.Sprintf("unknown region %q", id.Region))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid identity: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Regional returns the routing host group (americas, europe, asia, sea) for the platform.
func (id Identity) Regional() string {
	return PlatformToRegional[id.Region]
}

// PlatformToRegional maps platform codes to regional routing values.
var PlatformToRegional = map[string]string{
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"oc1":  "americas",
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru":   "europe",
	"kr":   "asia",
	"jp1":  "asia",
	"ph2":  "sea",
	"sg2":  "sea",
	"th2":  "sea",
	"tw2":  "sea",
	"vn2":  "sea",
}

// Region is a selectable platform for clients that render a picker.
type Region struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Regional string `json:"regional"`
}

var Regions = []Region{
	{"North America (NA)", "na1", "americas"},
	{"Europe West (EUW)", "euw1", "europe"},
	{"Europe Nordic & East (EUNE)", "eun1", "europe"},
	{"Korea (KR)", "kr", "asia"},
	{"Brazil (BR)", "br1", "americas"},
	{"Japan (JP)", "jp1", "asia"},
	{"Latin America North (LAN)", "la1", "americas"},
	{"Latin America South (LAS)", "la2", "americas"},
	{"Oceania (OCE)", "oc1", "americas"},
	{"Turkey (TR)", "tr1", "europe"},
	{"Russia (RU)", "ru", "europe"},
	{"Philippines (PH)", "ph2", "sea"},
	{"Singapore (SG)", "sg2", "sea"},
	{"Thailand (TH)", "th2", "sea"},
	{"Taiwan (TW)", "tw2", "sea"},
	{"Vietnam (VN)", "vn2", "sea"},
}
