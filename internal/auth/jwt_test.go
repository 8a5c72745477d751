/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParse_ValidHS256(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{
		UserID: "u1",
		Email:  "hr@acme.test",
		Roles:  []Role{RoleRecruiter},
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("expected user id u1, got %q", claims.UserID)
	}
	if !claims.HasRole(RoleRecruiter) {
		t.Fatalf("expected recruiter role, got %v", claims.Roles)
	}
}

func TestParse_Rejects(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()

	sign := func(method jwt.SigningMethod, key []byte, exp *jwt.NumericDate) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, Claims{
			UserID:           "u1",
			Roles:            []Role{RoleAdmin},
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp, Subject: "u1"},
		}).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return s
	}

	tests := []struct {
		name  string
		token string
	}{
		{"unexpected algorithm", sign(jwt.SigningMethodHS384, secret, jwt.NewNumericDate(now.Add(time.Hour)))},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other"), jwt.NewNumericDate(now.Add(time.Hour)))},
		{"expired", sign(jwt.SigningMethodHS256, secret, jwt.NewNumericDate(now.Add(-time.Minute)))},
		{"no expiry", sign(jwt.SigningMethodHS256, secret, nil)},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(secret, tt.token); err == nil {
				t.Fatal("expected parse to fail")
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		need  []Role
		want  bool
	}{
		{"admin has everything", []Role{RoleAdmin}, []Role{RoleInterviewer}, true},
		{"matching role", []Role{RoleInterviewer}, []Role{RoleRecruiter, RoleInterviewer}, true},
		{"missing role", []Role{RoleInterviewer}, []Role{RoleRecruiter}, false},
		{"no roles", nil, []Role{RoleRecruiter}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{Roles: tt.roles}
			if got := c.HasRole(tt.need...); got != tt.want {
				t.Errorf("HasRole(%v) = %v, want %v", tt.need, got, tt.want)
			}
		})
	}
}
