/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package offers

import "github.com/cockroachdb/errors"

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrOfferNotFound       = errors.New("offer not found")
	ErrNotEligible         = errors.New("application not eligible for an offer")
	ErrOfferExists         = errors.New("offer already exists")
)

// errOfferMoved means a conditional transition matched no row because the
// offer left pending(sent) in the meantime.
var errOfferMoved = errors.New("offer no longer awaiting a reply")
