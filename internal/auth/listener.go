package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/soniclayer/nowplayd/internal/shared"
)

// DefaultCallbackTimeout bounds how long an authorization attempt waits for
// the browser redirect.
const DefaultCallbackTimeout = 2 * time.Minute

const successHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #1e1e2e; color: #fff; }
        .container { text-align: center; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #b0b0b0; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Connected to Spotify</h1>
        <p>You can close this tab.</p>
    </div>
</body>
</html>
`

const failureHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Failed</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #1e1e2e; color: #fff; }
        .container { text-align: center; }
        h1 { color: #f87171; margin: 0 0 1rem 0; }
        p { color: #b0b0b0; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Failed</h1>
        <p>%s</p>
    </div>
</body>
</html>
`

type callbackResult struct {
	code string
	err  error
}

// CallbackListener binds a loopback HTTP endpoint and waits for exactly one
// OAuth redirect request. The socket is released on every exit path.
type CallbackListener struct {
	redirectURI string
	state       string

	ln        net.Listener
	srv       *http.Server
	results   chan callbackResult
	sendOnce  sync.Once
	closeOnce sync.Once
}

// NewCallbackListener creates a listener for the given redirect URI. If state
// is non-empty the redirect's state parameter must match it.
func NewCallbackListener(redirectURI, state string) *CallbackListener {
	return &CallbackListener{
		redirectURI: redirectURI,
		state:       state,
		results:     make(chan callbackResult, 1),
	}
}

// Bind opens the loopback socket embedded in the redirect URI and starts
// serving. It must be called before the authorization URL is opened in the
// browser so the redirect cannot race the listener.
func (l *CallbackListener) Bind() error {
	u, err := url.Parse(l.redirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect uri %q: %w", l.redirectURI, err)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return fmt.Errorf("failed to bind callback listener on %s: %w", u.Host, err)
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleCallback)
	l.srv = &http.Server{Handler: mux}

	go func() {
		_ = l.srv.Serve(ln)
	}()

	return nil
}

// Addr returns the bound listener address. Valid after Bind.
func (l *CallbackListener) Addr() string {
	if l.ln == nil {
		return ""
	}
	return l.ln.Addr().String()
}

// Wait blocks until the redirect arrives, the timeout elapses, or ctx is
// cancelled, then releases the socket. It returns the authorization code on
// success, shared.ErrListenerTimeout or shared.ErrListenerCancelled otherwise.
func (l *CallbackListener) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	defer l.Close()

	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	select {
	case r := <-l.results:
		return r.code, r.err
	case <-time.After(timeout):
		return "", shared.ErrListenerTimeout
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", shared.ErrListenerCancelled, ctx.Err())
	}
}

// Close shuts the HTTP server and listener down. Safe to call more than once.
func (l *CallbackListener) Close() {
	l.closeOnce.Do(func() {
		if l.srv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = l.srv.Shutdown(sctx)
		} else if l.ln != nil {
			_ = l.ln.Close()
		}
	})
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	// Browsers often follow the redirect with a favicon request; only the
	// redirect itself may consume the one-shot result.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html")

	if l.state != "" && q.Get("state") != l.state {
		fmt.Fprintf(w, failureHTML, "State mismatch")
		l.send(callbackResult{err: fmt.Errorf("authorization state mismatch")})
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		fmt.Fprintf(w, failureHTML, errParam)
		l.send(callbackResult{err: fmt.Errorf("authorization failed: %s", errParam)})
		return
	}

	code := q.Get("code")
	if code == "" {
		fmt.Fprintf(w, failureHTML, "Missing authorization code")
		l.send(callbackResult{err: fmt.Errorf("authorization response missing code")})
		return
	}

	fmt.Fprint(w, successHTML)
	l.send(callbackResult{code: code})
}

func (l *CallbackListener) send(r callbackResult) {
	l.sendOnce.Do(func() {
		l.results <- r
	})
}
