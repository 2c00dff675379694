package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	docs   map[uuid.UUID]map[Category]json.RawMessage
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[uuid.UUID]map[Category]json.RawMessage)}
}

func (m *memoryStore) Get(ctx context.Context, regionID uuid.UUID, category Category) (*Document, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.docs[regionID][category]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{RegionID: regionID, Category: category, Value: raw}, nil
}

func (m *memoryStore) List(ctx context.Context, regionID uuid.UUID) ([]Document, error) {
	var docs []Document
	for category, raw := range m.docs[regionID] {
		docs = append(docs, Document{RegionID: regionID, Category: category, Value: raw})
	}
	return docs, nil
}

func (m *memoryStore) Put(ctx context.Context, regionID uuid.UUID, category Category, value json.RawMessage) (*Document, error) {
	if m.docs[regionID] == nil {
		m.docs[regionID] = make(map[Category]json.RawMessage)
	}
	m.docs[regionID][category] = value
	return &Document{RegionID: regionID, Category: category, Value: value, UpdatedAt: time.Now()}, nil
}

func (m *memoryStore) Delete(ctx context.Context, regionID uuid.UUID, category Category) error {
	if _, ok := m.docs[regionID][category]; !ok {
		return ErrNotFound
	}
	delete(m.docs[regionID], category)
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTaxRatesFallsBackToDefaults(t *testing.T) {
	svc := newTestService(newMemoryStore())

	rates, err := svc.TaxRates(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, rates.GST.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, rates.PST.Equal(decimal.RequireFromString("0.07")))

	days, err := svc.PaymentTermsDays(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}

func TestTaxRatesPrefersRegionThenGlobal(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store)
	region := uuid.New()
	other := uuid.New()

	_, err := svc.Put(ctx, GlobalRegion, CategoryTaxRates, json.RawMessage(`{"gst":"0.05","pst":"0.06"}`))
	require.NoError(t, err)
	_, err = svc.Put(ctx, region, CategoryTaxRates, json.RawMessage(`{"gst":"0.05","pst":"0"}`))
	require.NoError(t, err)

	rates, err := svc.TaxRates(ctx, region)
	require.NoError(t, err)
	assert.True(t, rates.PST.IsZero())

	rates, err = svc.TaxRates(ctx, other)
	require.NoError(t, err)
	assert.True(t, rates.PST.Equal(decimal.RequireFromString("0.06")))

	require.NoError(t, svc.Reset(ctx, region, CategoryTaxRates))
	rates, err = svc.TaxRates(ctx, region)
	require.NoError(t, err)
	assert.True(t, rates.PST.Equal(decimal.RequireFromString("0.06")))
}

func TestPaymentTermsRegionOverride(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())
	region := uuid.New()

	_, err := svc.Put(ctx, region, CategoryPaymentTerms, json.RawMessage(`{"days":15}`))
	require.NoError(t, err)

	days, err := svc.PaymentTermsDays(ctx, region)
	require.NoError(t, err)
	assert.Equal(t, 15, days)
}

func TestStoreFailureIsNotMaskedByDefaults(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	svc := newTestService(store)

	_, err := svc.TaxRates(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = svc.PaymentTermsDays(context.Background(), GlobalRegion)
	require.Error(t, err)
}

func TestPutValidatesValues(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	_, err := svc.Put(ctx, GlobalRegion, CategoryTaxRates, json.RawMessage(`{"gst":"1.5","pst":"0.07"}`))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Put(ctx, GlobalRegion, CategoryTaxRates, json.RawMessage(`{"gst":"0.05","pst":"0.0997501"}`))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Put(ctx, GlobalRegion, CategoryPaymentTerms, json.RawMessage(`{"days":-1}`))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Put(ctx, GlobalRegion, CategoryCompanyInfo, json.RawMessage(`{"name":""}`))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Put(ctx, GlobalRegion, Category("colours"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = svc.Put(ctx, GlobalRegion, CategoryServicePricing, json.RawMessage(`not json`))
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestPutKeepsSubPercentRates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	_, err := svc.Put(ctx, GlobalRegion, CategoryTaxRates, json.RawMessage(`{"gst":"0.05","pst":"0.09975"}`))
	require.NoError(t, err)

	rates, err := svc.TaxRates(ctx, GlobalRegion)
	require.NoError(t, err)
	assert.Equal(t, "0.09975", rates.PST.String())
}

func TestEffectiveResolvesEveryCategory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())
	_, err := svc.Put(ctx, GlobalRegion, CategoryCompanyInfo, json.RawMessage(`{"name":"Boardworks","gstNumber":"123456789RT0001"}`))
	require.NoError(t, err)

	values, err := svc.Effective(ctx, uuid.New())
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, "Boardworks", values[CategoryCompanyInfo].(CompanyInfo).Name)
	assert.Equal(t, 30, values[CategoryPaymentTerms].(PaymentTerms).Days)
}
