// Package mediaplayer adapts a Marantz receiver client to the media-player
// entity contract a home-automation host polls and commands.
package mediaplayer

type State string

const (
	StateUnknown State = ""
	StateOn      State = "on"
	StateOff     State = "off"
)

// Feature is the host's media-player capability bitset.
type Feature uint32

const (
	FeatureVolumeSet       Feature = 4
	FeatureVolumeMute      Feature = 8
	FeatureTurnOn          Feature = 128
	FeatureTurnOff         Feature = 256
	FeatureVolumeStep      Feature = 1024
	FeatureSelectSource    Feature = 2048
	FeatureSelectSoundMode Feature = 65536
)

func (f Feature) Has(other Feature) bool {
	return f&other == other
}

// Entity is what the host platform expects from a media player. The host
// serialises calls on a single entity; implementations need no locking.
type Entity interface {
	Name() string
	UniqueID() string
	State() State
	VolumeLevel() (float64, bool)
	IsVolumeMuted() (bool, bool)
	Source() (string, bool)
	SourceList() []string
	SoundMode() (string, bool)
	SoundModeList() []string
	SupportedFeatures() Feature

	// Update refreshes the cached state from the device.
	Update() error

	TurnOn() error
	TurnOff() error
	VolumeUp() error
	VolumeDown() error
	SetVolumeLevel(volume float64) error
	MuteVolume(mute bool) error
	SelectSource(source string) error
	SelectSoundMode(soundMode string) error
}

// Receiver is the receiver control client. Each call takes the command
// marker and either the query code or a write code, and returns the reply
// code; an empty reply means the receiver answered nothing.
type Receiver interface {
	MainPower(marker, code string) (string, error)
	MainVolume(marker, code string) (string, error)
	MainMute(marker, code string) (string, error)
	MainSource(marker, code string) (string, error)
	MainSoundMode(marker, code string) (string, error)
}

const (
	Marker = ":"
	Query  = "?"
)

// Snapshot is a copy of an entity's cached state.
type Snapshot struct {
	Name      string
	State     State
	Volume    *float64
	Muted     *bool
	Source    *string
	SoundMode *string
}

// TakeSnapshot copies the cached state of any entity.
func TakeSnapshot(e Entity) Snapshot {
	s := Snapshot{Name: e.Name(), State: e.State()}
	if v, ok := e.VolumeLevel(); ok {
		s.Volume = &v
	}
	if m, ok := e.IsVolumeMuted(); ok {
		s.Muted = &m
	}
	if src, ok := e.Source(); ok {
		s.Source = &src
	}
	if sm, ok := e.SoundMode(); ok {
		s.SoundMode = &sm
	}
	return s
}
