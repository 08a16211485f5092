package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"karigar-backend/internal/database"
	"karigar-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// one shared in-memory database per test, foreign keys on so the
	// cascade constraints actually fire
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedKarigar(t *testing.T, db *gorm.DB, name string) models.Karigar {
	t.Helper()
	k := models.Karigar{Name: name}
	require.NoError(t, db.Create(&k).Error)
	return k
}

func seedParty(t *testing.T, db *gorm.DB) models.Party {
	t.Helper()
	p := models.Party{Name: "Mehta Jewellers"}
	require.NoError(t, db.Create(&p).Error)
	return p
}

type diamondSpec struct {
	pieces int
	weight string // carats
}

func seedOrder(t *testing.T, db *gorm.DB, partyID, karigarID uint, weight string, diamonds ...diamondSpec) models.Order {
	t.Helper()

	entries := make([]models.DiamondEntry, 0, len(diamonds))
	for _, d := range diamonds {
		entries = append(entries, models.DiamondEntry{
			Shape:  "round",
			Pieces: d.pieces,
			Weight: dec(d.weight),
		})
	}

	o := models.Order{
		PartyID:        partyID,
		KarigarID:      karigarID,
		Status:         models.StatusIssued,
		IssueDate:      time.Now(),
		DeliveryDate:   time.Now().AddDate(0, 0, 14),
		Quantity:       1,
		Weight:         dec(weight),
		ItemCategory:   "ring",
		Purity:         "18K",
		DiamondEntries: entries,
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func completeOrder(t *testing.T, db *gorm.DB, orderID uint, usedWeight, wastage string, diamonds ...diamondSpec) {
	t.Helper()

	used := models.MaterialUsed{
		OrderID:    orderID,
		UsedWeight: dec(usedWeight),
		Wastage:    dec(wastage),
		FinalColor: "yellow",
	}
	for _, d := range diamonds {
		used.Diamonds = append(used.Diamonds, models.UsedDiamond{
			Shape:       "round",
			UsedPieces:  d.pieces,
			FinalWeight: dec(d.weight),
		})
	}
	require.NoError(t, db.Create(&used).Error)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", models.StatusCompleted).Error)
}

func assertDecEqual(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: want %s, got %s", field, want, got)
}

func TestResync_ZeroOrders(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Ramesh")

	row, err := Resync(db, k.ID)
	require.NoError(t, err)

	assertDecEqual(t, "0", row.TotalGoldIssued, "TotalGoldIssued")
	assertDecEqual(t, "0", row.TotalGoldUsed, "TotalGoldUsed")
	assertDecEqual(t, "0", row.TotalWastage, "TotalWastage")
	assert.Equal(t, 0, row.TotalDiamondPcsIssued)
	assert.Equal(t, 0, row.TotalDiamondPcsUsed)
}

func TestResync_UnknownKarigar(t *testing.T) {
	db := newTestDB(t)

	row, err := Resync(db, 9999)
	require.NoError(t, err)

	assertDecEqual(t, "0", row.TotalGoldIssued, "TotalGoldIssued")

	// nothing persisted for a karigar that does not exist
	var count int64
	db.Model(&models.KarigarLedger{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestResync_ConcreteScenario(t *testing.T) {
	// Order A: 10g, 2pcs/0.3ct, still in progress.
	// Order B: 5g, completed with 4.5g used, 0.3g wastage, 2pcs/0.3ct consumed.
	db := newTestDB(t)
	k := seedKarigar(t, db, "Suresh")
	p := seedParty(t, db)

	seedOrder(t, db, p.ID, k.ID, "10", diamondSpec{pieces: 2, weight: "0.3"})
	b := seedOrder(t, db, p.ID, k.ID, "5")
	completeOrder(t, db, b.ID, "4.5", "0.3", diamondSpec{pieces: 2, weight: "0.3"})

	row, err := Resync(db, k.ID)
	require.NoError(t, err)

	assertDecEqual(t, "15", row.TotalGoldIssued, "TotalGoldIssued")
	assertDecEqual(t, "4.5", row.TotalGoldUsed, "TotalGoldUsed")
	assertDecEqual(t, "0.3", row.TotalWastage, "TotalWastage")
	assert.Equal(t, 2, row.TotalDiamondPcsIssued)
	assertDecEqual(t, "0.3", row.TotalDiamondWtIssued, "TotalDiamondWtIssued")
	assert.Equal(t, 2, row.TotalDiamondPcsUsed)
	assertDecEqual(t, "0.3", row.TotalDiamondWtUsed, "TotalDiamondWtUsed")
}

func TestResync_DiamondAggregation(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Dinesh")
	p := seedParty(t, db)

	seedOrder(t, db, p.ID, k.ID, "8",
		diamondSpec{pieces: 2, weight: "0.4"},
		diamondSpec{pieces: 3, weight: "0.6"},
	)

	row, err := Resync(db, k.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, row.TotalDiamondPcsIssued)
	assertDecEqual(t, "1", row.TotalDiamondWtIssued, "TotalDiamondWtIssued")
}

func TestResync_Idempotent(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Mahesh")
	p := seedParty(t, db)

	a := seedOrder(t, db, p.ID, k.ID, "7.25", diamondSpec{pieces: 4, weight: "0.8"})
	completeOrder(t, db, a.ID, "7", "0.2", diamondSpec{pieces: 4, weight: "0.75"})

	first, err := Resync(db, k.ID)
	require.NoError(t, err)
	second, err := Resync(db, k.ID)
	require.NoError(t, err)

	assert.True(t, first.TotalGoldIssued.Equal(second.TotalGoldIssued))
	assert.True(t, first.TotalGoldUsed.Equal(second.TotalGoldUsed))
	assert.True(t, first.TotalWastage.Equal(second.TotalWastage))
	assert.Equal(t, first.TotalDiamondPcsIssued, second.TotalDiamondPcsIssued)
	assert.True(t, first.TotalDiamondWtIssued.Equal(second.TotalDiamondWtIssued))
	assert.Equal(t, first.TotalDiamondPcsUsed, second.TotalDiamondPcsUsed)
	assert.True(t, first.TotalDiamondWtUsed.Equal(second.TotalDiamondWtUsed))

	// still exactly one ledger row
	var count int64
	db.Model(&models.KarigarLedger{}).Where("karigar_id = ?", k.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestIncrementalConvergesWithResync(t *testing.T) {
	// With only creations and completions (no edits, no deletes) the cheap
	// increments and the full recompute must land on the same totals.
	db := newTestDB(t)
	k := seedKarigar(t, db, "Naresh")
	p := seedParty(t, db)

	seedOrder(t, db, p.ID, k.ID, "10", diamondSpec{pieces: 2, weight: "0.3"})
	require.NoError(t, RecordIssue(db, k.ID, dec("10"), 2, dec("0.3")))

	b := seedOrder(t, db, p.ID, k.ID, "5")
	require.NoError(t, RecordIssue(db, k.ID, dec("5"), 0, dec("0")))

	completeOrder(t, db, b.ID, "4.5", "0.3", diamondSpec{pieces: 2, weight: "0.3"})
	require.NoError(t, RecordUsage(db, k.ID, dec("4.5"), dec("0.3"), 2, dec("0.3")))

	var incremental models.KarigarLedger
	require.NoError(t, db.First(&incremental, "karigar_id = ?", k.ID).Error)

	resynced, err := Resync(db, k.ID)
	require.NoError(t, err)

	assert.True(t, incremental.TotalGoldIssued.Equal(resynced.TotalGoldIssued),
		"issued: incremental %s vs resync %s", incremental.TotalGoldIssued, resynced.TotalGoldIssued)
	assert.True(t, incremental.TotalGoldUsed.Equal(resynced.TotalGoldUsed))
	assert.True(t, incremental.TotalWastage.Equal(resynced.TotalWastage))
	assert.Equal(t, incremental.TotalDiamondPcsIssued, resynced.TotalDiamondPcsIssued)
	assert.True(t, incremental.TotalDiamondWtIssued.Equal(resynced.TotalDiamondWtIssued))
	assert.Equal(t, incremental.TotalDiamondPcsUsed, resynced.TotalDiamondPcsUsed)
	assert.True(t, incremental.TotalDiamondWtUsed.Equal(resynced.TotalDiamondWtUsed))
}

func TestDeletionCorrectedByResync(t *testing.T) {
	// Two orders (5g, 3g), the 3g one completed (4g used, 0.5g wastage).
	// Deleting the uncompleted 5g order and resyncing must leave only the
	// remaining order's numbers.
	db := newTestDB(t)
	k := seedKarigar(t, db, "Paresh")
	p := seedParty(t, db)

	a := seedOrder(t, db, p.ID, k.ID, "5")
	b := seedOrder(t, db, p.ID, k.ID, "3")
	completeOrder(t, db, b.ID, "4", "0.5")

	// incremental path saw both orders
	require.NoError(t, RecordIssue(db, k.ID, dec("5"), 0, dec("0")))
	require.NoError(t, RecordIssue(db, k.ID, dec("3"), 0, dec("0")))
	require.NoError(t, RecordUsage(db, k.ID, dec("4"), dec("0.5"), 0, dec("0")))

	require.NoError(t, db.Delete(&models.Order{}, "id = ?", a.ID).Error)

	row, err := Resync(db, k.ID)
	require.NoError(t, err)

	assertDecEqual(t, "3", row.TotalGoldIssued, "TotalGoldIssued")
	assertDecEqual(t, "4", row.TotalGoldUsed, "TotalGoldUsed")
	assertDecEqual(t, "0.5", row.TotalWastage, "TotalWastage")
}

func TestEditDriftHealedByResync(t *testing.T) {
	// Editing an order's weight and diamonds does not touch the ledger;
	// the next resync must pick up the order-current values.
	db := newTestDB(t)
	k := seedKarigar(t, db, "Bhavesh")
	p := seedParty(t, db)

	o := seedOrder(t, db, p.ID, k.ID, "10", diamondSpec{pieces: 2, weight: "0.3"})
	require.NoError(t, RecordIssue(db, k.ID, dec("10"), 2, dec("0.3")))

	// edit: weight 10 -> 12, diamonds replaced with 3pcs/0.5ct
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", o.ID).Update("weight", dec("12")).Error)
	require.NoError(t, db.Where("order_id = ?", o.ID).Delete(&models.DiamondEntry{}).Error)
	require.NoError(t, db.Create(&models.DiamondEntry{OrderID: o.ID, Pieces: 3, Weight: dec("0.5")}).Error)

	// cache still has the stale numbers
	var stale models.KarigarLedger
	require.NoError(t, db.First(&stale, "karigar_id = ?", k.ID).Error)
	assertDecEqual(t, "10", stale.TotalGoldIssued, "stale TotalGoldIssued")

	row, err := Resync(db, k.ID)
	require.NoError(t, err)

	assertDecEqual(t, "12", row.TotalGoldIssued, "TotalGoldIssued")
	assert.Equal(t, 3, row.TotalDiamondPcsIssued)
	assertDecEqual(t, "0.5", row.TotalDiamondWtIssued, "TotalDiamondWtIssued")
}

func TestRecordIssue_SeedsThenIncrements(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Jignesh")

	// first call creates the row with zero used-side counters
	require.NoError(t, RecordIssue(db, k.ID, dec("2.5"), 1, dec("0.1")))

	var row models.KarigarLedger
	require.NoError(t, db.First(&row, "karigar_id = ?", k.ID).Error)
	assertDecEqual(t, "2.5", row.TotalGoldIssued, "TotalGoldIssued")
	assertDecEqual(t, "0", row.TotalGoldUsed, "TotalGoldUsed")
	assert.Equal(t, 1, row.TotalDiamondPcsIssued)

	// second call increments in place
	require.NoError(t, RecordIssue(db, k.ID, dec("1.5"), 2, dec("0.2")))

	require.NoError(t, db.First(&row, "karigar_id = ?", k.ID).Error)
	assertDecEqual(t, "4", row.TotalGoldIssued, "TotalGoldIssued")
	assert.Equal(t, 3, row.TotalDiamondPcsIssued)
	assertDecEqual(t, "0.3", row.TotalDiamondWtIssued, "TotalDiamondWtIssued")

	var count int64
	db.Model(&models.KarigarLedger{}).Where("karigar_id = ?", k.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordUsage_SeedsThenIncrements(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Hitesh")

	require.NoError(t, RecordUsage(db, k.ID, dec("3.2"), dec("0.4"), 2, dec("0.25")))

	var row models.KarigarLedger
	require.NoError(t, db.First(&row, "karigar_id = ?", k.ID).Error)
	assertDecEqual(t, "3.2", row.TotalGoldUsed, "TotalGoldUsed")
	assertDecEqual(t, "0.4", row.TotalWastage, "TotalWastage")
	assertDecEqual(t, "0", row.TotalGoldIssued, "TotalGoldIssued")

	require.NoError(t, RecordUsage(db, k.ID, dec("1.8"), dec("0.1"), 1, dec("0.05")))

	require.NoError(t, db.First(&row, "karigar_id = ?", k.ID).Error)
	assertDecEqual(t, "5", row.TotalGoldUsed, "TotalGoldUsed")
	assertDecEqual(t, "0.5", row.TotalWastage, "TotalWastage")
	assert.Equal(t, 3, row.TotalDiamondPcsUsed)
	assertDecEqual(t, "0.3", row.TotalDiamondWtUsed, "TotalDiamondWtUsed")
}

func TestOrderDeleteCascadesChildren(t *testing.T) {
	db := newTestDB(t)
	k := seedKarigar(t, db, "Kalpesh")
	p := seedParty(t, db)

	o := seedOrder(t, db, p.ID, k.ID, "6", diamondSpec{pieces: 2, weight: "0.2"})
	completeOrder(t, db, o.ID, "5.5", "0.3", diamondSpec{pieces: 2, weight: "0.2"})

	require.NoError(t, db.Delete(&models.Order{}, "id = ?", o.ID).Error)

	var diamonds, used int64
	db.Model(&models.DiamondEntry{}).Where("order_id = ?", o.ID).Count(&diamonds)
	db.Model(&models.MaterialUsed{}).Where("order_id = ?", o.ID).Count(&used)
	assert.Equal(t, int64(0), diamonds)
	assert.Equal(t, int64(0), used)

	row, err := Resync(db, k.ID)
	require.NoError(t, err)
	assertDecEqual(t, "0", row.TotalGoldIssued, "TotalGoldIssued")
	assertDecEqual(t, "0", row.TotalGoldUsed, "TotalGoldUsed")
}
