// Command cms-auth-cli is a CLI client for the cms-auth service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/cms-auth/internal/api/authv1"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// ---- config/token store ----

type tokenFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "cms-auth")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cms-auth")
}

// session token from login
func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

// verification or reset token awaiting a code
func pendingPath() string { return filepath.Join(cfgDir(), "pending.json") }

func saveToken(path, tok string) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{Token: tok, ExpiresAt: tokenExpiry(tok)})
}

func loadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.Token == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token")
	}
	return tf.Token, nil
}

// tokenExpiry reads exp without verifying the signature; the server does that.
func tokenExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(15 * time.Minute)
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialConfig struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
}

func (d dialConfig) dial(ctx context.Context, bearer string) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if !d.plaintext {
		var err error
		if creds, err = loadTLS(d.caPath, d.skipVerify); err != nil {
			return nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !d.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	return grpc.DialContext(ctx, d.addr, opts...)
}

// ---- commands ----

type app struct {
	out  io.Writer
	dial func(ctx context.Context, bearer string) (*grpc.ClientConn, error)
}

func (a *app) client(ctx context.Context, bearer string) (*authv1.AuthServiceClient, func(), error) {
	cc, err := a.dial(ctx, bearer)
	if err != nil {
		return nil, nil, err
	}
	return authv1.NewAuthServiceClient(cc), func() { _ = cc.Close() }, nil
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// pendingOr returns explicit when set, otherwise the stored pending token.
func pendingOr(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	tok, err := loadToken(pendingPath())
	if err != nil {
		return "", fmt.Errorf("pending token: %w (pass -token)", err)
	}
	return tok, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "cms-auth-cli %s (%s)\n", version, buildDate)
		return nil

	case "register":
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		u := fs.String("u", "", "username (optional)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" || *p == "" {
			return errors.New("need -email and -p")
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.Register(ctx, &authv1.RegisterRequest{
			FirstName: *first, LastName: *last, Email: *email, Password: *p, Username: *u,
		})
		if err != nil {
			return err
		}
		if err := saveToken(pendingPath(), resp.Token); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "check your email, then run: verify -code <code>")
		return nil

	case "verify":
		code := fs.String("code", "", "6 digit code")
		tok := fs.String("token", "", "verification token (defaults to the saved one)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := pendingOr(*tok)
		if err != nil {
			return err
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.VerifyRegistration(ctx, &authv1.VerifyRegistrationRequest{Token: t, Code: *code})
		if err != nil {
			return err
		}
		_ = os.Remove(pendingPath())
		a.printJSON(resp.User)
		return nil

	case "login":
		email := fs.String("email", "", "email")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" || *p == "" {
			return errors.New("need -email and -p")
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.Login(ctx, &authv1.LoginRequest{Email: *email, Password: *p})
		if err != nil {
			return err
		}
		if err := saveToken(tokenPath(), resp.Token); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil

	case "me":
		tok, err := loadToken(tokenPath())
		if err != nil {
			return fmt.Errorf("%w (login required)", err)
		}
		cli, done, err := a.client(ctx, tok)
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.Me(ctx, &authv1.MeRequest{})
		if err != nil {
			return err
		}
		a.printJSON(resp.User)
		return nil

	case "logout":
		tok, err := loadToken(tokenPath())
		if err != nil {
			return fmt.Errorf("%w (login required)", err)
		}
		cli, done, err := a.client(ctx, tok)
		if err != nil {
			return err
		}
		defer done()
		if _, err := cli.Logout(ctx, &authv1.LogoutRequest{}); err != nil {
			return err
		}
		_ = os.Remove(tokenPath())
		fmt.Fprintln(a.out, "ok")
		return nil

	case "forgot":
		email := fs.String("email", "", "email")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("need -email")
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.ForgotPassword(ctx, &authv1.ForgotPasswordRequest{Email: *email})
		if err != nil {
			return err
		}
		if err := saveToken(pendingPath(), resp.Token); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "check your email, then run: verify-forgot -code <code>")
		return nil

	case "verify-forgot":
		code := fs.String("code", "", "6 digit code")
		tok := fs.String("token", "", "reset token (defaults to the saved one)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := pendingOr(*tok)
		if err != nil {
			return err
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		resp, err := cli.VerifyForgotPassword(ctx, &authv1.VerifyForgotPasswordRequest{Token: t, Code: *code})
		if err != nil {
			return err
		}
		if err := saveToken(pendingPath(), resp.Token); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "code accepted, now run: reset -p <new password>")
		return nil

	case "reset":
		p := fs.String("p", "", "new password")
		tok := fs.String("token", "", "verified reset token (defaults to the saved one)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *p == "" {
			return errors.New("need -p")
		}
		t, err := pendingOr(*tok)
		if err != nil {
			return err
		}
		cli, done, err := a.client(ctx, "")
		if err != nil {
			return err
		}
		defer done()
		if _, err := cli.ResetPassword(ctx, &authv1.ResetPasswordRequest{Token: t, Password: *p}); err != nil {
			return err
		}
		_ = os.Remove(pendingPath())
		fmt.Fprintln(a.out, "password changed")
		return nil
	}
	return errUsage
}

var errUsage = errors.New("usage")

func usage() {
	fmt.Fprintf(os.Stderr, `cms-auth-cli
Usage:
  cms-auth-cli -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  register       -email <email> -p <password> [-first <name> -last <name> -u <username>]
  verify         -code <code> [-token <token>]
  login          -email <email> -p <password>          (saves token)
  me
  logout                                               (revokes and forgets token)
  forgot         -email <email>
  verify-forgot  -code <code> [-token <token>]
  reset          -p <new password> [-token <token>]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses global flags and dispatches the subcommand.
func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	skipVerify := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "connect without TLS (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dc := dialConfig{addr: *addr, caPath: *caPath, skipVerify: *skipVerify, plaintext: *plaintext}
	a := &app{out: os.Stdout, dial: dc.dial}
	if err := a.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
