// Package wire implements the framed text protocol spoken between the trivia
// server and its clients.
//
// Each frame is a 16-byte space-padded command, a '|', a 4-digit zero-padded
// decimal data length, a '|', and the data itself. The data carries the
// command's fields joined with '#'. The codec is purely structural: it does
// not know which commands exist or how many fields each one takes.
package wire

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Frame layout constants.
const (
	CmdFieldLength    = 16
	LengthFieldLength = 4
	MaxDataLength     = 9999
	HeaderLength      = CmdFieldLength + 1 + LengthFieldLength + 1
	MaxMessageLength  = HeaderLength + MaxDataLength

	delimiter      = '|'
	fieldDelimiter = "#"
)

// Command vocabulary. Clients send the first group, the server replies with
// the second.
const (
	CmdLogin       = "LOGIN"
	CmdLogout      = "LOGOUT"
	CmdGetQuestion = "GET_QUESTION"
	CmdAnswer      = "ANSWER"
	CmdMyScore     = "MY_SCORE"
	CmdHighscore   = "HIGHSCORE"
	CmdLogged      = "LOGGED"

	CmdLoginOK         = "LOGIN_OK"
	CmdLoginFailed     = "LOGIN_FAILED"
	CmdQuestion        = "QUESTION"
	CmdNoMoreQuestions = "NO_MORE_QUESTIONS"
	CmdCorrect         = "CORRECT"
	CmdIncorrect       = "INCORRECT"
	CmdYourScore       = "YOUR_SCORE"
	CmdAllScore        = "ALL_SCORE"
	CmdLoggedAnswer    = "LOGGED_ANSWER"
	CmdError           = "ERROR"
)

// Message is one protocol frame: a command and its ordered field list.
type Message struct {
	Cmd    string
	Fields []string
}

// NewMessage builds a Message from a command and its fields.
func NewMessage(cmd string, fields ...string) Message {
	return Message{Cmd: cmd, Fields: fields}
}

// Encode serializes the message into a single frame. Commands and fields are
// validated at this boundary so that the framing stays self-delimiting: no
// field may contain the field separator and no command may contain either
// delimiter.
func Encode(msg Message) ([]byte, error) {
	if msg.Cmd == "" {
		return nil, ErrEmptyCommand
	}
	if len(msg.Cmd) > CmdFieldLength {
		return nil, errors.Wrapf(ErrCommandTooLong, "command %q", msg.Cmd)
	}
	if strings.ContainsAny(msg.Cmd, "|#") {
		return nil, errors.Wrapf(ErrInvalidCommand, "command %q", msg.Cmd)
	}
	for _, f := range msg.Fields {
		if strings.ContainsAny(f, "|#") {
			return nil, errors.Wrapf(ErrInvalidField, "field %q", f)
		}
	}
	data := strings.Join(msg.Fields, fieldDelimiter)
	if len(data) > MaxDataLength {
		return nil, errors.Wrapf(ErrDataTooLong, "%d bytes", len(data))
	}

	buf := make([]byte, 0, HeaderLength+len(data))
	buf = append(buf, msg.Cmd...)
	for i := len(msg.Cmd); i < CmdFieldLength; i++ {
		buf = append(buf, ' ')
	}
	buf = append(buf, delimiter)
	length := strconv.Itoa(len(data))
	for i := len(length); i < LengthFieldLength; i++ {
		buf = append(buf, '0')
	}
	buf = append(buf, length...)
	buf = append(buf, delimiter)
	buf = append(buf, data...)
	return buf, nil
}

// Decode attempts to decode a single frame from the front of buf.
// It returns the message and the number of bytes consumed. If buf does not
// yet hold a whole frame it returns ErrMessageIncomplete; the caller should
// read more bytes and retry. Structurally invalid frames return
// ErrMalformedMessage.
func Decode(buf []byte) (Message, int, error) {
	if len(buf) < HeaderLength {
		return Message{}, 0, ErrMessageIncomplete
	}
	if buf[CmdFieldLength] != delimiter || buf[CmdFieldLength+1+LengthFieldLength] != delimiter {
		return Message{}, 0, errors.Wrap(ErrMalformedMessage, "misplaced delimiter")
	}
	cmd := strings.TrimRight(string(buf[:CmdFieldLength]), " ")
	if cmd == "" || strings.ContainsAny(cmd, " |#") {
		return Message{}, 0, errors.Wrap(ErrMalformedMessage, "bad command field")
	}
	length := 0
	for _, b := range buf[CmdFieldLength+1 : CmdFieldLength+1+LengthFieldLength] {
		if b < '0' || b > '9' {
			return Message{}, 0, errors.Wrap(ErrMalformedMessage, "non-numeric length field")
		}
		length = length*10 + int(b-'0')
	}
	if len(buf) < HeaderLength+length {
		return Message{}, 0, ErrMessageIncomplete
	}
	data := string(buf[HeaderLength : HeaderLength+length])
	msg := Message{Cmd: cmd}
	if data != "" {
		msg.Fields = strings.Split(data, fieldDelimiter)
	}
	return msg, HeaderLength + length, nil
}
