package service

import (
	"context"
	"sync"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// DefaultRetention - горизонт хранения ключей дедупликации: две недели.
const DefaultRetention = 14 * 24 * time.Hour

// Key - сигнал считается повтором, если совпадают все четыре поля
// в пределах одной свечи таймфрейма.
type Key struct {
	Symbol    string
	Timeframe string
	Strategy  models.StrategyKind
	Direction models.Direction
}

func KeyOf(sig models.Signal) Key {
	return Key{
		Symbol:    sig.Symbol,
		Timeframe: sig.Timeframe,
		Strategy:  sig.Strategy,
		Direction: sig.Direction,
	}
}

// Deduper - гейт "один сигнал на ключ на свечу".
type Deduper interface {
	// Accept возвращает true, если ключ впервые встречен в текущей свече.
	Accept(ctx context.Context, key Key, now time.Time) (bool, error)
	// Size - число хранимых записей, -1 если неизвестно.
	Size(ctx context.Context) int
}

// bucketOf - начало свечи таймфрейма key в момент now.
// Неизвестный таймфрейм считаем минутным.
func bucketOf(key Key, now time.Time) (bucket, tfSec int64) {
	tfSec, ok := helper.TFSeconds(key.Timeframe)
	if !ok {
		tfSec = 60
	}
	return helper.BucketStart(now, tfSec), tfSec
}

// MemoryDedup хранит последнюю принятую свечу по ключу.
type MemoryDedup struct {
	retention time.Duration

	mu      sync.Mutex
	entries map[Key]int64
}

func NewMemoryDedup(retention time.Duration) *MemoryDedup {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryDedup{
		retention: retention,
		entries:   make(map[Key]int64),
	}
}

func (d *MemoryDedup) Accept(_ context.Context, key Key, now time.Time) (bool, error) {
	bucket, _ := bucketOf(key, now)

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.entries[key]; ok && last == bucket {
		return false, nil
	}
	d.entries[key] = bucket
	d.purgeLocked(now)
	return true, nil
}

// purgeLocked удаляет записи старше now - retention. Вызывается на каждой
// принятой записи, отдельного таймера нет.
func (d *MemoryDedup) purgeLocked(now time.Time) {
	horizon := now.Add(-d.retention).Unix()
	for k, bucket := range d.entries {
		if bucket < horizon {
			delete(d.entries, k)
		}
	}
}

func (d *MemoryDedup) Size(context.Context) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
