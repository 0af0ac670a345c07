package mediaplayer

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marantzctl/config"
)

type call struct {
	Command string
	Marker  string
	Code    string
}

// fakeReceiver answers queries from replies and records every call.
type fakeReceiver struct {
	replies map[string]string
	errs    map[string]error
	calls   []call
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{replies: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeReceiver) do(command, marker, code string) (string, error) {
	f.calls = append(f.calls, call{command, marker, code})
	if err := f.errs[command]; err != nil {
		return "", err
	}
	if code == Query {
		return f.replies[command], nil
	}
	return "", nil
}

func (f *fakeReceiver) MainPower(marker, code string) (string, error) {
	return f.do("power", marker, code)
}

func (f *fakeReceiver) MainVolume(marker, code string) (string, error) {
	return f.do("volume", marker, code)
}

func (f *fakeReceiver) MainMute(marker, code string) (string, error) {
	return f.do("mute", marker, code)
}

func (f *fakeReceiver) MainSource(marker, code string) (string, error) {
	return f.do("source", marker, code)
}

func (f *fakeReceiver) MainSoundMode(marker, code string) (string, error) {
	return f.do("soundmode", marker, code)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SerialPort = "/dev/null"
	cfg.UniqueID = "marantz-1"
	cfg.Sources = config.Mappings{{Code: "11", Name: "TV"}, {Code: "1", Name: "CD"}, {Code: "5", Name: "Aux"}, {Code: "3", Name: "Phono"}}
	cfg.SoundModes = config.Mappings{{Code: "0", Name: "Auto"}, {Code: "1", Name: "Stereo"}, {Code: "9", Name: "Direct"}}
	return cfg
}

func newTestMarantz() (*Marantz, *fakeReceiver) {
	r := newFakeReceiver()
	return NewMarantz(testConfig(), r), r
}

func TestMarantz_InitialState(t *testing.T) {
	m, r := newTestMarantz()

	assert.Equal(t, "Marantz Receiver", m.Name())
	assert.Equal(t, "marantz-1", m.UniqueID())
	assert.Equal(t, StateUnknown, m.State())
	_, ok := m.VolumeLevel()
	assert.False(t, ok)
	_, ok = m.IsVolumeMuted()
	assert.False(t, ok)
	_, ok = m.Source()
	assert.False(t, ok)
	_, ok = m.SoundMode()
	assert.False(t, ok)
	assert.Empty(t, r.calls, "constructing and reading properties must not talk to the receiver")
}

func TestMarantz_UpdateQueries(t *testing.T) {
	m, r := newTestMarantz()
	r.replies = map[string]string{"power": "2", "mute": "1", "volume": "-36", "source": "11", "soundmode": "9"}

	require.NoError(t, m.Update())

	want := []call{
		{"power", ":", "?"},
		{"mute", ":", "?"},
		{"volume", ":", "?"},
		{"source", ":", "?"},
		{"soundmode", ":", "?"},
	}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("Update() calls mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, StateOn, m.State())
	muted, ok := m.IsVolumeMuted()
	assert.True(t, ok)
	assert.False(t, muted)
	vol, ok := m.VolumeLevel()
	assert.True(t, ok)
	assert.InDelta(t, 0.5, vol, 1e-9)
	src, ok := m.Source()
	assert.True(t, ok)
	assert.Equal(t, "TV", src)
	sm, ok := m.SoundMode()
	assert.True(t, ok)
	assert.Equal(t, "Direct", sm)
}

func TestMarantz_UpdatePowerReply(t *testing.T) {
	m, r := newTestMarantz()

	r.replies["power"] = "1"
	require.NoError(t, m.Update())
	assert.Equal(t, StateOff, m.State())

	for _, reply := range []string{"0", "2", "3", ""} {
		r.replies["power"] = reply
		require.NoError(t, m.Update())
		assert.Equal(t, StateOn, m.State(), "power reply %q", reply)
	}
}

func TestMarantz_UpdateMuteReply(t *testing.T) {
	m, r := newTestMarantz()

	r.replies["mute"] = "1"
	require.NoError(t, m.Update())
	muted, _ := m.IsVolumeMuted()
	assert.False(t, muted)

	for _, reply := range []string{"0", "2", ""} {
		r.replies["mute"] = reply
		require.NoError(t, m.Update())
		muted, ok := m.IsVolumeMuted()
		assert.True(t, ok)
		assert.True(t, muted, "mute reply %q", reply)
	}
}

func TestMarantz_UpdateAbsentVolumeKeepsCached(t *testing.T) {
	m, r := newTestMarantz()

	r.replies["volume"] = "-71"
	require.NoError(t, m.Update())
	vol, ok := m.VolumeLevel()
	require.True(t, ok)
	assert.Equal(t, 0.0, vol)

	r.replies["volume"] = ""
	require.NoError(t, m.Update())
	vol, ok = m.VolumeLevel()
	require.True(t, ok)
	assert.Equal(t, 0.0, vol)

	r.replies["volume"] = "-1"
	require.NoError(t, m.Update())
	vol, _ = m.VolumeLevel()
	assert.Equal(t, 1.0, vol)
}

func TestMarantz_UpdateUnknownCodes(t *testing.T) {
	m, r := newTestMarantz()

	r.replies["source"] = "11"
	r.replies["soundmode"] = "0"
	require.NoError(t, m.Update())
	_, ok := m.Source()
	assert.True(t, ok)

	r.replies["source"] = "99"
	// query replies are looked up without the write prefix
	r.replies["soundmode"] = "00"
	require.NoError(t, m.Update())
	_, ok = m.Source()
	assert.False(t, ok)
	_, ok = m.SoundMode()
	assert.False(t, ok)
}

func TestMarantz_UpdateErrors(t *testing.T) {
	m, r := newTestMarantz()
	r.errs["volume"] = errors.New("serial timeout")

	err := m.Update()
	assert.ErrorContains(t, err, "unable to query volume")
	assert.ErrorIs(t, err, r.errs["volume"])
	// power and mute were refreshed before the failure
	assert.Equal(t, StateOn, m.State())
	_, ok := m.IsVolumeMuted()
	assert.True(t, ok)

	delete(r.errs, "volume")
	r.replies["volume"] = "loud"
	assert.ErrorContains(t, m.Update(), "unexpected volume reply")
}

func TestMarantz_Commands(t *testing.T) {
	tests := []struct {
		name string
		run  func(m *Marantz) error
		want call
	}{
		{"turn on", (*Marantz).TurnOn, call{"power", ":", "2"}},
		{"turn off", (*Marantz).TurnOff, call{"power", ":", "3"}},
		{"volume up", (*Marantz).VolumeUp, call{"volume", ":", "1"}},
		{"volume down", (*Marantz).VolumeDown, call{"volume", ":", "2"}},
		{"mute", func(m *Marantz) error { return m.MuteVolume(true) }, call{"mute", ":", "2"}},
		{"unmute", func(m *Marantz) error { return m.MuteVolume(false) }, call{"mute", ":", "1"}},
		{"set volume", func(m *Marantz) error { return m.SetVolumeLevel(0.5) }, call{"volume", ":", "0-36"}},
		{"set volume min", func(m *Marantz) error { return m.SetVolumeLevel(0) }, call{"volume", ":", "0-71"}},
		{"set volume max", func(m *Marantz) error { return m.SetVolumeLevel(1) }, call{"volume", ":", "0-1"}},
		{"select source", func(m *Marantz) error { return m.SelectSource("TV") }, call{"source", ":", "11"}},
		{"select unmapped source", func(m *Marantz) error { return m.SelectSource("Unmapped Name") }, call{"source", ":", ""}},
		{"select sound mode", func(m *Marantz) error { return m.SelectSoundMode("Stereo") }, call{"soundmode", ":", "01"}},
		{"select unmapped sound mode", func(m *Marantz) error { return m.SelectSoundMode("Unmapped Name") }, call{"soundmode", ":", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r := newTestMarantz()
			require.NoError(t, tt.run(m))
			assert.Equal(t, []call{tt.want}, r.calls)
			assert.Equal(t, StateUnknown, m.State(), "commands must not touch cached state")
		})
	}
}

func TestMarantz_CommandErrorsPropagate(t *testing.T) {
	m, r := newTestMarantz()
	failure := errors.New("port closed")
	r.errs["power"] = failure
	r.errs["source"] = failure

	assert.ErrorIs(t, m.TurnOn(), failure)
	assert.ErrorIs(t, m.SelectSource("CD"), failure)
	assert.NoError(t, m.VolumeUp())
}

func TestMarantz_Lists(t *testing.T) {
	m, _ := newTestMarantz()

	assert.Equal(t, []string{"Aux", "CD", "Phono", "TV"}, m.SourceList())
	assert.Equal(t, []string{"Auto", "Direct", "Stereo"}, m.SoundModeList())

	// callers get their own copy
	list := m.SourceList()
	list[0] = "changed"
	assert.Equal(t, "Aux", m.SourceList()[0])
}

func TestMarantz_DuplicateDisplayNames(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = config.Mappings{{Code: "1", Name: "TV"}, {Code: "2", Name: "TV"}, {Code: "3", Name: "TV"}, {Code: "4", Name: "TV"}, {Code: "5", Name: "CD"}}
	cfg.SoundModes = config.Mappings{{Code: "7", Name: "Surround"}, {Code: "3", Name: "Surround"}}

	for i := 0; i < 50; i++ {
		r := newFakeReceiver()
		m := NewMarantz(cfg, r)
		require.NoError(t, m.SelectSource("TV"))
		require.NoError(t, m.SelectSoundMode("Surround"))
		assert.Equal(t, []call{{"source", ":", "4"}, {"soundmode", ":", "03"}}, r.calls)
		assert.Equal(t, []string{"CD", "TV"}, m.SourceList())
	}

	// every code still resolves on refresh
	r := newFakeReceiver()
	m := NewMarantz(cfg, r)
	r.replies["source"] = "2"
	require.NoError(t, m.Update())
	src, ok := m.Source()
	assert.True(t, ok)
	assert.Equal(t, "TV", src)
}

func TestMarantz_EmptyLists(t *testing.T) {
	cfg := config.Default()
	cfg.SerialPort = "/dev/null"
	m := NewMarantz(cfg, newFakeReceiver())

	assert.Empty(t, m.SourceList())
	assert.Empty(t, m.SoundModeList())
	require.NoError(t, m.SelectSource("CD"))
}

func TestMarantz_SupportedFeatures(t *testing.T) {
	m, _ := newTestMarantz()
	f := m.SupportedFeatures()

	for _, feature := range []Feature{
		FeatureVolumeSet, FeatureVolumeMute, FeatureTurnOn, FeatureTurnOff,
		FeatureVolumeStep, FeatureSelectSource, FeatureSelectSoundMode,
	} {
		assert.True(t, f.Has(feature), "missing feature %d", feature)
	}
	assert.Equal(t, Feature(69004), f)
}

func TestTakeSnapshot(t *testing.T) {
	m, r := newTestMarantz()
	assert.Equal(t, Snapshot{Name: "Marantz Receiver"}, TakeSnapshot(m))

	r.replies = map[string]string{"power": "1", "mute": "1", "volume": "-71", "source": "1", "soundmode": "7"}
	require.NoError(t, m.Update())

	vol, muted, src := 0.0, false, "CD"
	want := Snapshot{
		Name:   "Marantz Receiver",
		State:  StateOff,
		Volume: &vol,
		Muted:  &muted,
		Source: &src,
	}
	if diff := cmp.Diff(want, TakeSnapshot(m)); diff != "" {
		t.Errorf("TakeSnapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestVolumeConversion(t *testing.T) {
	m, _ := newTestMarantz()

	assert.Equal(t, -71, m.calcDB(0.0))
	assert.Equal(t, -1, m.calcDB(1.0))
	assert.Equal(t, -36, m.calcDB(0.5))

	assert.Equal(t, 0.0, m.calcVolume(-71))
	assert.Equal(t, 1.0, m.calcVolume(-1))

	// one rounding unit is 1/70 of the range
	unit := 1.0 / 70
	for i := 0; i <= 1000; i++ {
		f := float64(i) / 1000
		assert.InDelta(t, f, m.calcVolume(m.calcDB(f)), unit, "fraction %v", f)
	}
}

func TestVolumeConversion_RoundsHalfToEven(t *testing.T) {
	cfg := testConfig()
	cfg.MinVolume = -10
	cfg.MaxVolume = 0
	m := NewMarantz(cfg, newFakeReceiver())

	// 2.5 rounds to 2, 7.5 rounds to 8
	assert.Equal(t, -8, m.calcDB(0.25))
	assert.Equal(t, -2, m.calcDB(0.75))
}

func TestVolumeConversion_Unclamped(t *testing.T) {
	m, _ := newTestMarantz()

	assert.Equal(t, -85, m.calcDB(-0.2))
	assert.Equal(t, 13, m.calcDB(1.2))
	assert.InDelta(t, 0.2, m.calcVolume(-85), 1e-9)
	assert.InDelta(t, 1.2, m.calcVolume(13), 1e-9)
}

func TestVolumeConversion_EqualBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinVolume = -20
	cfg.MaxVolume = -20
	m := NewMarantz(cfg, newFakeReceiver())

	assert.True(t, math.IsNaN(m.calcVolume(-20)))
	assert.True(t, math.IsInf(m.calcVolume(-10), 1))
}

func TestVolumeCode(t *testing.T) {
	assert.Equal(t, "0-36", volumeCode(-36))
	assert.Equal(t, "0-5", volumeCode(-5))
	assert.Equal(t, "00", volumeCode(0))
	assert.Equal(t, "05", volumeCode(5))
	assert.Equal(t, "015", volumeCode(15))
}
