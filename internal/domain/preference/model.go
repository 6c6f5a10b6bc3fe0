package preference

import (
	"errors"
	"time"

	"golang.org/x/text/language"
)

// Theme constants.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultLanguage is used when nothing else matches.
const DefaultLanguage = "en"

// Domain errors
var (
	ErrInvalidTheme    = errors.New("theme must be 'light' or 'dark'")
	ErrInvalidLanguage = errors.New("language is not supported")
	ErrEmptyAccount    = errors.New("preferences require an account")
	ErrDuplicateTeam   = errors.New("a team can only have one notification override")
)

// Language is one selectable interface language.
type Language struct {
	Code       string
	Name       string
	NativeName string
}

var supported = []Language{
	{"en", "English", "English"},
	{"zh", "Chinese", "中文"},
	{"hi", "Hindi", "हिन्दी"},
	{"es", "Spanish", "Español"},
	{"fr", "French", "Français"},
	{"ar", "Arabic", "العربية"},
	{"bn", "Bengali", "বাংলা"},
	{"ru", "Russian", "Русский"},
	{"pt", "Portuguese", "Português"},
	{"id", "Indonesian", "Bahasa Indonesia"},
	{"de", "German", "Deutsch"},
	{"ja", "Japanese", "日本語"},
	{"sw", "Swahili", "Kiswahili"},
	{"tr", "Turkish", "Türkçe"},
	{"it", "Italian", "Italiano"},
	{"ko", "Korean", "한국어"},
}

var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(supported))
	for i, l := range supported {
		tags[i] = language.MustParse(l.Code)
	}
	return tags
}

// SupportedLanguages returns the selectable languages, default first.
func SupportedLanguages() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// NormalizeLanguage parses a BCP 47 tag and returns the supported base code
// it names, e.g. "pt-BR" -> "pt".
// PRE: none
// POST: returns ErrInvalidLanguage when the base language is not supported
func NormalizeLanguage(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", ErrInvalidLanguage
	}
	base, _ := tag.Base()
	for _, l := range supported {
		if l.Code == base.String() {
			return l.Code, nil
		}
	}
	return "", ErrInvalidLanguage
}

// MatchAcceptLanguage picks the best supported language for an
// Accept-Language header, falling back to DefaultLanguage.
func MatchAcceptLanguage(header string) string {
	if header == "" {
		return DefaultLanguage
	}
	_, idx := language.MatchStrings(matcher, header)
	if idx < 0 || idx >= len(supported) {
		return DefaultLanguage
	}
	return supported[idx].Code
}

// IsRTL reports whether the language is written right to left.
func IsRTL(code string) bool {
	return code == "ar"
}

// Channels is the set of notification channels a user has switched on.
type Channels struct {
	Email    bool
	Slack    bool
	Teams    bool
	Discord  bool
	Realtime bool
}

// DefaultChannels mirrors the initial settings: email on, everything else off.
func DefaultChannels() Channels {
	return Channels{Email: true}
}

// TeamOverride replaces the global channels for one team when OverrideGlobal is set.
type TeamOverride struct {
	TeamID         string
	OverrideGlobal bool
	Channels       Channels
}

// Preferences is one account's display and notification settings.
type Preferences struct {
	AccountID string
	Theme     string
	Language  string
	Channels  Channels
	Overrides []TeamOverride
	UpdatedAt time.Time
}

// Defaults returns the preferences a new account starts with.
func Defaults(accountID, lang string) Preferences {
	if code, err := NormalizeLanguage(lang); err == nil {
		lang = code
	} else {
		lang = DefaultLanguage
	}
	return Preferences{
		AccountID: accountID,
		Theme:     ThemeLight,
		Language:  lang,
		Channels:  DefaultChannels(),
	}
}

// Validate checks the preferences' invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (p *Preferences) Validate() error {
	if p.AccountID == "" {
		return ErrEmptyAccount
	}
	if p.Theme != ThemeLight && p.Theme != ThemeDark {
		return ErrInvalidTheme
	}
	if _, err := NormalizeLanguage(p.Language); err != nil {
		return err
	}
	seen := make(map[string]bool, len(p.Overrides))
	for _, o := range p.Overrides {
		if o.TeamID == "" {
			return errors.New("override requires a team")
		}
		if seen[o.TeamID] {
			return ErrDuplicateTeam
		}
		seen[o.TeamID] = true
	}
	return nil
}

// IsDark reports whether the dark theme is selected.
func (p *Preferences) IsDark() bool {
	return p.Theme == ThemeDark
}

// Override returns the override for teamID, or a zero override that
// follows the global channels.
func (p *Preferences) Override(teamID string) TeamOverride {
	for _, o := range p.Overrides {
		if o.TeamID == teamID {
			return o
		}
	}
	return TeamOverride{TeamID: teamID, Channels: p.Channels}
}

// EffectiveChannels returns the channels that apply to teamID.
func (p *Preferences) EffectiveChannels(teamID string) Channels {
	o := p.Override(teamID)
	if o.OverrideGlobal {
		return o.Channels
	}
	return p.Channels
}

// SetOverride inserts or replaces the override for o.TeamID.
// POST: exactly one override exists for o.TeamID
func (p *Preferences) SetOverride(o TeamOverride) {
	for i := range p.Overrides {
		if p.Overrides[i].TeamID == o.TeamID {
			p.Overrides[i] = o
			return
		}
	}
	p.Overrides = append(p.Overrides, o)
}
