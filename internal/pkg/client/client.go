package client

import (
	"fmt"
	"net"
	"strconv"

	"trivia/internal/pkg/question"
	"trivia/internal/pkg/wire"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Client speaks the trivia protocol to a server over TCP.
type Client struct {
	serverAddr string

	conn net.Conn
	dec  *wire.Decoder
	w    *wire.Writer
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerPort sets the server port to connect to on localhost.
func WithServerPort(p uint16) Cfg {
	return func(c *Client) error {
		c.serverAddr = fmt.Sprintf("localhost:%d", p)
		return nil
	}
}

// WithServerAddr sets the full server address to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		c.serverAddr = addr
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if client.serverAddr == "" {
		return nil, errors.New("client requires a server address")
	}
	return client, nil
}

// Connect establishes the connection to the server.
func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.serverAddr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.serverAddr)
	}
	c.attach(conn)
	return nil
}

// attach wires the client onto an established connection.
func (c *Client) attach(conn net.Conn) {
	c.conn = conn
	c.dec = wire.NewDecoder(conn)
	c.w = wire.NewWriter(conn)
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return errors.Wrap(c.conn.Close(), "close connection failed")
}

// roundTrip sends one message and waits for the server's reply.
func (c *Client) roundTrip(msg wire.Message) (wire.Message, error) {
	if err := c.w.WriteMessage(msg); err != nil {
		return wire.Message{}, errors.Wrap(err, "send message failed")
	}
	reply, err := c.dec.ReadMessage()
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "receive reply failed")
	}
	return reply, nil
}

// Login authenticates the client. ErrLoginFailed carries the server's reason.
func (c *Client) Login(username, password string) error {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdLogin, username, password))
	if err != nil {
		return err
	}
	switch reply.Cmd {
	case wire.CmdLoginOK:
		logger.WithField("username", username).Info("logged in")
		return nil
	case wire.CmdLoginFailed:
		return errors.Wrapf(ErrLoginFailed, "%s", reason(reply))
	default:
		return errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
}

// GetQuestion requests the next question. When the server has no questions
// left for this session it returns ErrNoMoreQuestions.
func (c *Client) GetQuestion() (question.Question, error) {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdGetQuestion))
	if err != nil {
		return question.Question{}, err
	}
	switch reply.Cmd {
	case wire.CmdNoMoreQuestions:
		return question.Question{}, ErrNoMoreQuestions
	case wire.CmdQuestion:
	default:
		return question.Question{}, errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
	if len(reply.Fields) != question.NumChoices+2 {
		return question.Question{}, errors.Wrapf(ErrUnexpectedReply, "%d fields", len(reply.Fields))
	}
	id, err := strconv.Atoi(reply.Fields[0])
	if err != nil {
		return question.Question{}, errors.Wrap(ErrUnexpectedReply, "non-numeric question id")
	}
	q := question.Question{ID: id, Text: reply.Fields[1]}
	for i := 0; i < question.NumChoices; i++ {
		q.Choices[i] = reply.Fields[i+2]
	}
	return q, nil
}

// Answer submits the chosen index for the pending question. It reports
// whether the answer was correct and returns the correct choice text.
func (c *Client) Answer(choice int) (bool, string, error) {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdAnswer, strconv.Itoa(choice)))
	if err != nil {
		return false, "", err
	}
	switch reply.Cmd {
	case wire.CmdCorrect:
		return true, reason(reply), nil
	case wire.CmdIncorrect:
		return false, reason(reply), nil
	case wire.CmdError:
		return false, "", errors.Wrapf(ErrServerError, "%s", reason(reply))
	default:
		return false, "", errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
}

// Score asks the server for this user's current score.
func (c *Client) Score() (int, error) {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdMyScore))
	if err != nil {
		return 0, err
	}
	if reply.Cmd != wire.CmdYourScore || len(reply.Fields) != 1 {
		return 0, errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
	score, err := strconv.Atoi(reply.Fields[0])
	if err != nil {
		return 0, errors.Wrap(ErrUnexpectedReply, "non-numeric score")
	}
	return score, nil
}

// Highscores asks the server for the highscore table.
func (c *Client) Highscores() (string, error) {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdHighscore))
	if err != nil {
		return "", err
	}
	if reply.Cmd != wire.CmdAllScore {
		return "", errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
	return reason(reply), nil
}

// Online asks the server which users are currently logged in.
func (c *Client) Online() (string, error) {
	reply, err := c.roundTrip(wire.NewMessage(wire.CmdLogged))
	if err != nil {
		return "", err
	}
	if reply.Cmd != wire.CmdLoggedAnswer {
		return "", errors.Wrapf(ErrUnexpectedReply, "command %s", reply.Cmd)
	}
	return reason(reply), nil
}

// Logout tells the server the session is over. The server sends no reply and
// closes the connection.
func (c *Client) Logout() error {
	return errors.Wrap(c.w.WriteMessage(wire.NewMessage(wire.CmdLogout)), "send logout failed")
}

func reason(msg wire.Message) string {
	if len(msg.Fields) == 0 {
		return ""
	}
	return msg.Fields[0]
}
