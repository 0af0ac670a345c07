package marantz

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

type Command string

const (
	COMMAND_POWER      Command = "PWR"
	COMMAND_VOLUME     Command = "VOL"
	COMMAND_MUTE       Command = "AMT"
	COMMAND_SOURCE     Command = "SRC"
	COMMAND_SOUND_MODE Command = "SUR"
)

const QUERY = "?"

const (
	frameStart byte = '@'
	frameEnd   byte = '\r'
)

// a query is abandoned after this many replies for other commands
const maxUnsolicitedReplies = 16

// Reply is one "@CMD:VALUE\r" frame received from the receiver.
type Reply struct {
	Command Command
	Marker  byte
	Value   string
}

type callback func(Reply) error

type Receiver struct {
	writer io.Writer
	reader *bufio.Reader

	unsolicitedCallbacks []callback

	lastSend time.Time
}

func NewReceiver(reader io.Reader, writer io.Writer) *Receiver {
	return &Receiver{
		reader:               bufio.NewReader(reader),
		writer:               writer,
		unsolicitedCallbacks: []callback{},
	}
}

// AddUnsolicitedReplyHandler registers fn for replies that arrive while
// waiting on a query for a different command, e.g. auto-status feedback.
func (r *Receiver) AddUnsolicitedReplyHandler(fn func(Reply) error) {
	r.unsolicitedCallbacks = append(r.unsolicitedCallbacks, fn)
}

// Read reads a single reply frame. io.EOF is returned unwrapped when the
// stream ended before any byte of a new frame.
func (r *Receiver) Read() (Reply, error) {
	// "@" + 3 byte command + marker + <0-n bytes> + "\r"
	const minLength = len("@PWR:\r")
	buf, err := r.reader.ReadBytes(frameEnd)
	if err != nil {
		if err == io.EOF && len(buf) == 0 {
			return Reply{}, err
		}
		return Reply{}, fmt.Errorf("unable to read complete marantz reply: %w", err)
	}
	if len(buf) < minLength {
		return Reply{}, fmt.Errorf("reply below minimum length: %q", buf)
	}
	if buf[0] != frameStart {
		return Reply{}, fmt.Errorf("unexpected reply start: %q", buf[0])
	}
	return Reply{
		Command: Command(buf[1:4]),
		Marker:  buf[4],
		Value:   string(buf[5 : len(buf)-1]),
	}, nil
}

func (r *Receiver) callHandlers(reply Reply) error {
	for _, cb := range r.unsolicitedCallbacks {
		if err := cb(reply); err != nil {
			return fmt.Errorf("error when calling unsolicited reply callback: %w", err)
		}
	}
	return nil
}

// exchange sends one command and, for queries, waits for the matching
// reply. An empty value with a nil error means the receiver sent nothing.
func (r *Receiver) exchange(cmd Command, marker, value string) (string, error) {
	if err := r.send(cmd, marker, value); err != nil {
		return "", fmt.Errorf("unable to send %v command: %w", cmd, err)
	}
	if value != QUERY {
		return "", nil
	}
	for i := 0; i < maxUnsolicitedReplies; i++ {
		reply, err := r.Read()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("unable to read %v reply: %w", cmd, err)
		}
		if reply.Command == cmd {
			return reply.Value, nil
		}
		if err := r.callHandlers(reply); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no %v reply after %d unsolicited replies", cmd, maxUnsolicitedReplies)
}

func (r *Receiver) send(cmd Command, marker, value string) error {
	// the receiver drops commands sent back to back
	const minGap = 50 * time.Millisecond
	if since := time.Since(r.lastSend); since < minGap {
		time.Sleep(minGap - since)
	}

	msg := make([]byte, 0, 1+len(cmd)+len(marker)+len(value)+1)
	msg = append(msg, frameStart)
	msg = append(msg, string(cmd)...)
	msg = append(msg, marker...)
	msg = append(msg, value...)
	msg = append(msg, frameEnd)
	r.lastSend = time.Now()
	if _, err := r.writer.Write(msg); err != nil {
		return err
	}
	return nil
}
