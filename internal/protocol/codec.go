package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/yiblet/kopa/internal/store"
)

// ErrEmptyRequest is returned by ReadRequest when the peer closed the
// connection without sending anything.
var ErrEmptyRequest = errors.New("empty request")

// DecodeError is a malformed or unrecognized message.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(format string, args ...any) error {
	return &DecodeError{Err: fmt.Errorf(format, args...)}
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// The wire forms use pointers so that a missing required field can be told
// apart from a zero value.
type (
	searchWire struct {
		Query    *string `json:"query"`
		Cursor   *int64  `json:"cursor"`
		CursorID *int64  `json:"cursor_id"`
		Limit    *int    `json:"limit"`
	}
	copyWire struct {
		EntryID *int64 `json:"entry_id"`
	}
	copyTextWire struct {
		Content *string `json:"content"`
	}
)

func encode(tag string, payload any) ([]byte, error) {
	env := envelope{Type: tag}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// EncodeRequest returns the JSON form of req, without a trailing newline.
func EncodeRequest(req Request) ([]byte, error) {
	return encode(req.RequestType(), req)
}

// EncodeResponse returns the JSON form of resp, without a trailing newline.
func EncodeResponse(resp Response) ([]byte, error) {
	if _, ok := resp.(Success); ok {
		return encode(TypeSuccess, nil)
	}
	return encode(resp.ResponseType(), resp)
}

func unwrap(line []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return env, &DecodeError{Err: err}
	}
	if env.Type == "" {
		return env, decodeErr("missing field `type`")
	}
	return env, nil
}

func decodeData(env envelope, v any) error {
	data := env.Data
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return decodeErr("missing field `data` for %s", env.Type)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func checkLimit(limit *int) error {
	if limit != nil && (*limit <= 0 || *limit > store.MaxLimit) {
		return decodeErr("limit must be between 1 and %d, got %d", store.MaxLimit, *limit)
	}
	return nil
}

// DecodeRequest parses one request. Any failure is a *DecodeError.
func DecodeRequest(line []byte) (Request, error) {
	env, err := unwrap(line)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeListEntries:
		var w searchWire
		// every field of list_entries is optional, so data may be left out
		if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			if err := json.Unmarshal(env.Data, &w); err != nil {
				return nil, &DecodeError{Err: err}
			}
		}
		if err := checkLimit(w.Limit); err != nil {
			return nil, err
		}
		return ListEntries{Cursor: w.Cursor, CursorID: w.CursorID, Limit: w.Limit}, nil

	case TypeSearchEntries:
		var w searchWire
		if err := decodeData(env, &w); err != nil {
			return nil, err
		}
		if w.Query == nil {
			return nil, decodeErr("missing field `query`")
		}
		if err := checkLimit(w.Limit); err != nil {
			return nil, err
		}
		return SearchEntries{Query: *w.Query, Cursor: w.Cursor, CursorID: w.CursorID, Limit: w.Limit}, nil

	case TypeCopyToClipboard:
		var w copyWire
		if err := decodeData(env, &w); err != nil {
			return nil, err
		}
		if w.EntryID == nil {
			return nil, decodeErr("missing field `entry_id`")
		}
		return CopyToClipboard{EntryID: *w.EntryID}, nil

	case TypeCopyTextToClipboard:
		var w copyTextWire
		if err := decodeData(env, &w); err != nil {
			return nil, err
		}
		if w.Content == nil {
			return nil, decodeErr("missing field `content`")
		}
		return CopyTextToClipboard{Content: *w.Content}, nil

	default:
		return nil, decodeErr("unknown variant `%s`", env.Type)
	}
}

// DecodeResponse parses one response.
func DecodeResponse(line []byte) (Response, error) {
	env, err := unwrap(line)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeEntries:
		var resp Entries
		if err := decodeData(env, &resp); err != nil {
			return nil, err
		}
		if resp.Entries == nil {
			resp.Entries = []store.Entry{}
		}
		return resp, nil
	case TypeSuccess:
		return Success{}, nil
	case TypeError:
		var resp Error
		if err := decodeData(env, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	default:
		return nil, decodeErr("unknown variant `%s`", env.Type)
	}
}

// readLine reads up to and including the next newline and returns the line
// without trailing whitespace. A final line without a newline is accepted.
// io.EOF is returned only when nothing at all was read.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return bytes.TrimRight(line, " \t\r\n"), nil
}

func writeLine(w io.Writer, line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// ReadRequest reads and decodes one request line. It returns ErrEmptyRequest
// when the peer sent zero bytes, and a *DecodeError for a malformed line.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := readLine(r)
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyRequest
	}
	if err != nil {
		return nil, err
	}
	return DecodeRequest(line)
}

// WriteRequest encodes req and writes it as one line.
func WriteRequest(w io.Writer, req Request) error {
	line, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return writeLine(w, line)
}

// ReadResponse reads and decodes one response line.
func ReadResponse(r *bufio.Reader) (Response, error) {
	line, err := readLine(r)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("connection closed before response: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, err
	}
	return DecodeResponse(line)
}

// WriteResponse encodes resp and writes it as one line.
func WriteResponse(w io.Writer, resp Response) error {
	line, err := EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return writeLine(w, line)
}
