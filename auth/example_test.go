package auth_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/edgetag/auth"
)

func ExampleNewAdminAuthenticator() {
	a, err := auth.NewAdminAuthenticator(auth.AdminConfig{APIKeys: []string{"s3cret"}})
	if err != nil {
		fmt.Println(err)
		return
	}

	h := http.Header{}
	h.Set("X-API-Key", "s3cret")
	res, _ := a.Authenticate(context.Background(), &auth.AuthRequest{Header: h})
	fmt.Println(res.Authenticated, res.Method)
	// Output: true api_key
}
