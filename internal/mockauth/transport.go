package mockauth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Transport hands requests straight to a fiber app, without a listener.
// It satisfies auth.HTTPTransport.
type Transport struct {
	App *fiber.App
}

func (t Transport) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return t.App.Test(req, -1)
}
