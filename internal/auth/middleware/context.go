package auth

import (
	"context"
	"sync/atomic"

	"github.com/mind-engage/mindengage-courseware/internal/rbac"
)

type ctxKey string

const (
	ctxKeySub  ctxKey = "sub"
	ctxKeySlot ctxKey = "principal-slot"
)

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Principal is the caller as established by JWTMiddleware.
type Principal struct {
	Subject string
	Role    string
}

func PrincipalFromContext(ctx context.Context) Principal {
	return Principal{Subject: SubjectFromContext(ctx), Role: rbac.RoleFromContext(ctx)}
}

// WithPrincipal is what JWTMiddleware does; tests use it directly.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return rbac.WithRole(WithSubject(ctx, p.Subject), p.Role)
}

// PrincipalSlot lets middleware that runs before JWTMiddleware see who the
// caller turned out to be. JWTMiddleware fills the slot it finds in the
// request context.
type PrincipalSlot struct {
	p atomic.Pointer[Principal]
}

func (s *PrincipalSlot) Principal() Principal {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return Principal{}
}

// WithPrincipalSlot installs an empty slot on ctx.
func WithPrincipalSlot(ctx context.Context) (context.Context, *PrincipalSlot) {
	slot := &PrincipalSlot{}
	return context.WithValue(ctx, ctxKeySlot, slot), slot
}

func fillSlot(ctx context.Context, p Principal) {
	if slot, ok := ctx.Value(ctxKeySlot).(*PrincipalSlot); ok {
		slot.p.Store(&p)
	}
}
