package marantzctl

import (
	"fmt"
	"strconv"
	"strings"

	"marantzctl/mediaplayer"
)

// Dispatch runs one command verb against e. Names given to source and
// soundmode may contain spaces and are joined from the remaining args.
func Dispatch(e mediaplayer.Entity, command string, args []string) error {
	switch command {
	case "on":
		return e.TurnOn()
	case "off":
		return e.TurnOff()
	case "up":
		return e.VolumeUp()
	case "down":
		return e.VolumeDown()
	case "mute":
		return e.MuteVolume(true)
	case "unmute":
		return e.MuteVolume(false)
	case "volume":
		if len(args) != 1 {
			return fmt.Errorf("volume requires a level between 0 and 1")
		}
		level, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume level %q: %w", args[0], err)
		}
		return e.SetVolumeLevel(level)
	case "source":
		if len(args) == 0 {
			return fmt.Errorf("source requires a name, one of %q", e.SourceList())
		}
		return e.SelectSource(strings.Join(args, " "))
	case "soundmode":
		if len(args) == 0 {
			return fmt.Errorf("soundmode requires a name, one of %q", e.SoundModeList())
		}
		return e.SelectSoundMode(strings.Join(args, " "))
	}
	return fmt.Errorf("unknown command %q", command)
}
