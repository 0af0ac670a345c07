package marantz

func (r *Receiver) MainPower(marker, value string) (string, error) {
	return r.exchange(COMMAND_POWER, marker, value)
}

func (r *Receiver) MainVolume(marker, value string) (string, error) {
	return r.exchange(COMMAND_VOLUME, marker, value)
}

func (r *Receiver) MainMute(marker, value string) (string, error) {
	return r.exchange(COMMAND_MUTE, marker, value)
}

func (r *Receiver) MainSource(marker, value string) (string, error) {
	return r.exchange(COMMAND_SOURCE, marker, value)
}

func (r *Receiver) MainSoundMode(marker, value string) (string, error) {
	return r.exchange(COMMAND_SOUND_MODE, marker, value)
}
