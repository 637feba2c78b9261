package database

import (
	"reflect"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

// TrackedTables are the tables whose writes land in db_changes.
var TrackedTables = map[string]bool{
	"transactions": true,
	"order_items":  true,
	"user_cart":    true,
	"inventory":    true,
}

// RegisterChangeCapture records every create/update/delete on a tracked
// table as a db_changes row, inside the same connection (and transaction)
// as the write itself. Writes whose primary key is unknown, e.g. bulk
// deletes by condition, are not captured.
func RegisterChangeCapture(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").
		Register("canteen:capture_create", captureFor(models.ActionInsert)); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").
		Register("canteen:capture_update", captureFor(models.ActionUpdate)); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").
		Register("canteen:capture_delete", captureFor(models.ActionDelete))
}

func captureFor(action string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Schema == nil || tx.RowsAffected == 0 {
			return
		}
		if !TrackedTables[tx.Statement.Table] {
			return
		}

		ids := primaryKeys(tx)
		if len(ids) == 0 {
			return
		}

		now := time.Now()
		changes := make([]models.DBChange, 0, len(ids))
		for _, id := range ids {
			changes = append(changes, models.DBChange{
				TableName:  tx.Statement.Table,
				RecordID:   id,
				ActionType: action,
				ChangedAt:  now,
			})
		}

		if err := tx.Session(&gorm.Session{NewDB: true}).Create(&changes).Error; err != nil {
			utils.ErrorLogger.Printf("Error recording change on %s: %v", tx.Statement.Table, err)
		}
	}
}

func primaryKeys(tx *gorm.DB) []int64 {
	field := tx.Statement.Schema.PrioritizedPrimaryField
	if field == nil {
		return nil
	}

	var ids []int64
	collect := func(rv reflect.Value) {
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return
		}
		value, zero := field.ValueOf(tx.Statement.Context, rv)
		if zero {
			return
		}
		switch v := value.(type) {
		case uint:
			ids = append(ids, int64(v))
		case uint64:
			ids = append(ids, int64(v))
		case int:
			ids = append(ids, int64(v))
		case int64:
			ids = append(ids, v)
		}
	}

	rv := tx.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			collect(rv.Index(i))
		}
	default:
		collect(rv)
	}
	return ids
}
