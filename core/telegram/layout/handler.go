package layout

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// MaxRedirects bounds how many redirects one update may follow.
const MaxRedirects = 8

// ErrRedirectLoop is returned when a chain of redirects never reaches a layout.
var ErrRedirectLoop = errors.New("layout: too many redirects")

// Handler produces what should be shown for an update. A nil Result renders nothing.
type Handler func(c tele.Context) (Result, error)

// Result is either a *TextLayout or a redirect to another named handler.
type Result interface {
	result()
}

type redirect struct {
	name string
}

func (redirect) result() {}

// Redirect hands the update to the handler registered under name.
func Redirect(name string) Result {
	return redirect{name: name}
}

// resolve follows redirects until a layout (or nothing) is produced.
func resolve(c tele.Context, handlers *Handlers, res Result) (*TextLayout, error) {
	for i := 0; ; i++ {
		switch r := res.(type) {
		case nil:
			return nil, nil
		case *TextLayout:
			if r == nil {
				return nil, nil
			}
			return r, nil
		case redirect:
			if i >= MaxRedirects {
				return nil, fmt.Errorf("%w: last %q", ErrRedirectLoop, r.name)
			}
			h, err := handlers.Get(r.name)
			if err != nil {
				return nil, err
			}
			if res, err = h(c); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("layout: unknown result %T", res)
		}
	}
}
