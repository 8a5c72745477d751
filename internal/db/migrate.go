/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(models.All()...); err != nil {
		return err
	}
	if err := applyPostgresSlotBookingCheck(database); err != nil {
		return err
	}
	return nil
}

// applyPostgresSlotBookingCheck adds a CHECK constraint tying is_booked to
// booked_by_application_id. Other dialects rely on the write paths alone.
func applyPostgresSlotBookingCheck(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint WHERE conname = 'chk_slots_booking_consistent'
  ) THEN
    ALTER TABLE slots ADD CONSTRAINT chk_slots_booking_consistent
      CHECK (is_booked = (booked_by_application_id IS NOT NULL));
  END IF;
END;
$$;
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres slot booking check: %w", err)
	}
	return nil
}
