package services

import (
	"sync"
	"time"

	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

const changeBatchSize = 100

// ChangeMonitor polls db_changes and publishes each captured write to the
// realtime hub, carrying the current row.
type ChangeMonitor struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
}

func NewChangeMonitor(db *gorm.DB, hub *realtime.Hub, interval time.Duration) *ChangeMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &ChangeMonitor{
		DB:       db,
		Hub:      hub,
		Interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.Poll()
			case <-cm.stopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopChan) })
}

// Poll processes one batch of unprocessed changes and returns how many were
// published.
func (cm *ChangeMonitor) Poll() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var changes []models.DBChange
	if err := cm.DB.Where("processed = ?", false).
		Order("id ASC").
		Limit(changeBatchSize).
		Find(&changes).Error; err != nil {
		utils.ErrorLogger.Errorf("Error fetching changes: %v", err)
		return 0
	}
	if len(changes) == 0 {
		return 0
	}

	events := make([]realtime.ChangeEvent, 0, len(changes))
	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
		ev, ok := cm.toEvent(change)
		if ok {
			events = append(events, ev)
		}
	}

	// Tandai processed sebelum publish supaya event tidak terkirim dua kali
	if err := cm.DB.Model(&models.DBChange{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		utils.ErrorLogger.Errorf("Error marking changes as processed: %v", err)
		return 0
	}

	for _, ev := range events {
		cm.Hub.Publish(ev)
	}
	utils.InfoLogger.Debugf("Published %d of %d changes", len(events), len(changes))
	return len(events)
}

// toEvent loads the row behind a change. A row deleted before it could be
// loaded is reported as a delete.
func (cm *ChangeMonitor) toEvent(change models.DBChange) (realtime.ChangeEvent, bool) {
	ev := realtime.ChangeEvent{
		Table:    change.TableName,
		Type:     change.ActionType,
		RecordID: change.RecordID,
		At:       change.ChangedAt,
	}
	if change.ActionType == models.ActionDelete {
		return ev, true
	}

	var record any
	switch change.TableName {
	case realtime.TableTransactions:
		record = &models.Transaction{}
	case realtime.TableOrderItems:
		record = &models.OrderItem{}
	case realtime.TableUserCart:
		record = &models.UserCart{}
	case realtime.TableInventory:
		record = &models.InventoryItem{}
	default:
		utils.ErrorLogger.Errorf("Unknown table in db_changes: %s", change.TableName)
		return ev, false
	}

	res := cm.DB.Limit(1).Find(record, change.RecordID)
	if res.Error != nil {
		utils.ErrorLogger.Errorf("Error loading %s #%d: %v", change.TableName, change.RecordID, res.Error)
		return ev, false
	}
	if res.RowsAffected == 0 {
		ev.Type = models.ActionDelete
		return ev, true
	}
	ev.Record = record
	return ev, true
}
