package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Directory resolves the caller of a request to an Identity. A request without
// credentials resolves to the zero Identity and a nil error; invalid credentials
// return a domain Unauthorized error.
type Directory interface {
	Resolve(ctx context.Context, r *http.Request) (domain.Identity, error)
}

// 受信任头（网关已完成认证）
const (
	HeaderEmail    = "X-User-Email"
	HeaderRole     = "X-User-Role"
	HeaderSite     = "X-User-Site"
	HeaderApproved = "X-User-Approved"
)

// HeaderDirectory trusts identity headers set by an upstream gateway.
type HeaderDirectory struct{}

func (HeaderDirectory) Resolve(_ context.Context, r *http.Request) (domain.Identity, error) {
	email := strings.TrimSpace(r.Header.Get(HeaderEmail))
	if email == "" {
		return domain.Identity{}, nil
	}
	id := domain.Identity{
		Email: strings.ToLower(email),
		Role:  strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))),
		Site:  strings.TrimSpace(r.Header.Get(HeaderSite)),
	}
	if id.Role == "" {
		id.Role = domain.RoleUser
	}
	// 未带审批头时视为已审批（网关只转发已审批用户）
	approved := r.Header.Get(HeaderApproved)
	if approved == "" {
		id.Approved = true
	} else {
		v, err := strconv.ParseBool(approved)
		if err != nil {
			return domain.Identity{}, domain.Unauthorized("invalid %s header", HeaderApproved)
		}
		id.Approved = v
	}
	return id, nil
}

// Claims JWT 载荷
type Claims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Site     string `json:"site"`
	Approved bool   `json:"approved"`
	jwt.RegisteredClaims
}

// JWTDirectory verifies HS256 bearer tokens.
type JWTDirectory struct {
	secret []byte
	issuer string
}

func NewJWTDirectory(secret, issuer string) (*JWTDirectory, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTDirectory{secret: []byte(secret), issuer: issuer}, nil
}

func (d *JWTDirectory) Resolve(_ context.Context, r *http.Request) (domain.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return domain.Identity{}, nil
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if d.issuer != "" {
		opts = append(opts, jwt.WithIssuer(d.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.Unauthorized("token expired")
		}
		return domain.Identity{}, domain.Unauthorized("invalid token")
	}
	if claims.Email == "" {
		return domain.Identity{}, domain.Unauthorized("token has no email claim")
	}
	role := strings.ToLower(claims.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Identity{
		Email:    strings.ToLower(claims.Email),
		Role:     role,
		Site:     claims.Site,
		Approved: claims.Approved,
	}, nil
}

// Sign issues a token for id; used by tests and local tooling.
func (d *JWTDirectory) Sign(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:    id.Email,
		Role:     id.Role,
		Site:     id.Site,
		Approved: id.Approved,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    d.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
}

// RemoteDirectory 调用外部会话服务 GET {baseURL}/session
type RemoteDirectory struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewRemoteDirectory(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteDirectory {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &RemoteDirectory{httpClient: client, logger: logger}
}

func (d *RemoteDirectory) Resolve(ctx context.Context, r *http.Request) (domain.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return domain.Identity{}, nil
	}
	var id domain.Identity
	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetAuthToken(raw).
		SetResult(&id).
		Get("/session")
	if err != nil {
		d.logger.Error("Directory session lookup failed", zap.Error(err))
		return domain.Identity{}, fmt.Errorf("failed to call directory: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return domain.Identity{}, domain.Unauthorized("session rejected")
	case resp.IsError():
		d.logger.Error("Directory returned error", zap.Int("status_code", resp.StatusCode()))
		return domain.Identity{}, fmt.Errorf("directory error: status %d", resp.StatusCode())
	}
	if id.Email == "" {
		return domain.Identity{}, domain.Unauthorized("session has no email")
	}
	id.Email = strings.ToLower(id.Email)
	id.Role = strings.ToLower(id.Role)
	if id.Role == "" {
		id.Role = domain.RoleUser
	}
	return id, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or the zero value.
func FromContext(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(ctxKey{}).(domain.Identity)
	return id
}

// New builds the directory selected by mode.
func New(mode, jwtSecret, jwtIssuer, url string, timeout time.Duration, logger *zap.Logger) (Directory, error) {
	switch strings.ToLower(mode) {
	case "", "header":
		return HeaderDirectory{}, nil
	case "jwt":
		return NewJWTDirectory(jwtSecret, jwtIssuer)
	case "remote":
		if url == "" {
			return nil, errors.New("directory url is required for remote mode")
		}
		return NewRemoteDirectory(url, timeout, logger), nil
	}
	return nil, fmt.Errorf("unknown directory mode %q", mode)
}
