package mediaplayer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"marantzctl/config"
)

const supportMarantz = FeatureVolumeSet | FeatureVolumeMute | FeatureTurnOn | FeatureTurnOff |
	FeatureVolumeStep | FeatureSelectSource | FeatureSelectSoundMode

const (
	codePowerOn    = "2"
	codePowerOff   = "3"
	codeVolumeUp   = "1"
	codeVolumeDown = "2"
	codeMuteOn     = "2"
	codeMuteOff    = "1"

	replyPowerOff = "1"
	replyMuteOff  = "1"
)

// Marantz is a media-player entity backed by a Marantz receiver.
type Marantz struct {
	name      string
	uniqueID  string
	receiver  Receiver
	minVolume int
	maxVolume int

	sourceDict          config.Mappings
	soundModeDict       config.Mappings
	reverseSource       map[string]string
	reverseSoundMode    map[string]string
	sortedSourceList    []string
	sortedSoundModeList []string

	state     State
	volume    *float64
	mute      *bool
	source    *string
	soundMode *string
}

var _ Entity = (*Marantz)(nil)

func NewMarantz(cfg config.Config, receiver Receiver) *Marantz {
	m := &Marantz{
		name:             cfg.Name,
		uniqueID:         cfg.UniqueID,
		receiver:         receiver,
		minVolume:        cfg.MinVolume,
		maxVolume:        cfg.MaxVolume,
		sourceDict:       append(config.Mappings(nil), cfg.Sources...),
		soundModeDict:    append(config.Mappings(nil), cfg.SoundModes...),
		reverseSource:    map[string]string{},
		reverseSoundMode: map[string]string{},
	}
	// in configured order, so the last code sharing a display name wins
	for _, s := range m.sourceDict {
		m.reverseSource[s.Name] = s.Code
	}
	for _, sm := range m.soundModeDict {
		// sound mode writes carry a leading zero the query replies don't
		m.reverseSoundMode[sm.Name] = "0" + sm.Code
	}
	m.sortedSourceList = sortedKeys(m.reverseSource)
	m.sortedSoundModeList = sortedKeys(m.reverseSoundMode)
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Update queries power, mute, volume, source and sound mode. The first
// failing query aborts the refresh and fields already refreshed keep their
// new values.
func (m *Marantz) Update() error {
	power, err := m.receiver.MainPower(Marker, Query)
	if err != nil {
		return fmt.Errorf("unable to query power: %w", err)
	}
	if power == replyPowerOff {
		m.state = StateOff
	} else {
		m.state = StateOn
	}

	mute, err := m.receiver.MainMute(Marker, Query)
	if err != nil {
		return fmt.Errorf("unable to query mute: %w", err)
	}
	muted := mute != replyMuteOff
	m.mute = &muted

	vol, err := m.receiver.MainVolume(Marker, Query)
	if err != nil {
		return fmt.Errorf("unable to query volume: %w", err)
	}
	if vol != "" {
		decibel, err := strconv.Atoi(strings.TrimSpace(vol))
		if err != nil {
			return fmt.Errorf("unexpected volume reply %q: %w", vol, err)
		}
		level := m.calcVolume(decibel)
		m.volume = &level
	}

	src, err := m.receiver.MainSource(Marker, Query)
	if err != nil {
		return fmt.Errorf("unable to query source: %w", err)
	}
	m.source = lookup(m.sourceDict, src)

	sm, err := m.receiver.MainSoundMode(Marker, Query)
	if err != nil {
		return fmt.Errorf("unable to query sound mode: %w", err)
	}
	m.soundMode = lookup(m.soundModeDict, sm)
	return nil
}

func lookup(dict config.Mappings, code string) *string {
	if name, ok := dict.Lookup(code); ok {
		return &name
	}
	return nil
}

func (m *Marantz) Name() string { return m.name }

func (m *Marantz) UniqueID() string { return m.uniqueID }

func (m *Marantz) State() State { return m.state }

func (m *Marantz) SupportedFeatures() Feature { return supportMarantz }

func (m *Marantz) VolumeLevel() (float64, bool) {
	if m.volume == nil {
		return 0, false
	}
	return *m.volume, true
}

func (m *Marantz) IsVolumeMuted() (bool, bool) {
	if m.mute == nil {
		return false, false
	}
	return *m.mute, true
}

func (m *Marantz) Source() (string, bool) {
	if m.source == nil {
		return "", false
	}
	return *m.source, true
}

func (m *Marantz) SoundMode() (string, bool) {
	if m.soundMode == nil {
		return "", false
	}
	return *m.soundMode, true
}

// SourceList returns the configured source names in lexicographic order.
func (m *Marantz) SourceList() []string {
	return append([]string(nil), m.sortedSourceList...)
}

// SoundModeList returns the configured sound mode names in lexicographic order.
func (m *Marantz) SoundModeList() []string {
	return append([]string(nil), m.sortedSoundModeList...)
}

func (m *Marantz) TurnOn() error {
	_, err := m.receiver.MainPower(Marker, codePowerOn)
	return err
}

func (m *Marantz) TurnOff() error {
	_, err := m.receiver.MainPower(Marker, codePowerOff)
	return err
}

func (m *Marantz) VolumeUp() error {
	_, err := m.receiver.MainVolume(Marker, codeVolumeUp)
	return err
}

func (m *Marantz) VolumeDown() error {
	_, err := m.receiver.MainVolume(Marker, codeVolumeDown)
	return err
}

// SetVolumeLevel sets an absolute volume in 0..1. The level is not clamped.
func (m *Marantz) SetVolumeLevel(volume float64) error {
	_, err := m.receiver.MainVolume(Marker, volumeCode(m.calcDB(volume)))
	return err
}

// SelectSource switches input. An unconfigured name sends an empty code.
func (m *Marantz) SelectSource(source string) error {
	_, err := m.receiver.MainSource(Marker, m.reverseSource[source])
	return err
}

// SelectSoundMode switches surround mode. An unconfigured name sends an
// empty code.
func (m *Marantz) SelectSoundMode(soundMode string) error {
	_, err := m.receiver.MainSoundMode(Marker, m.reverseSoundMode[soundMode])
	return err
}

func (m *Marantz) MuteVolume(mute bool) error {
	code := codeMuteOff
	if mute {
		code = codeMuteOn
	}
	_, err := m.receiver.MainMute(Marker, code)
	return err
}
