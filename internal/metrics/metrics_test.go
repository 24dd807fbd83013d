package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/signing"
)

func TestSigningObserver(t *testing.T) {
	m := New()
	obs := m.SigningObserver()

	ledger := factors.MustFactorSourceIDFromHash(factors.LedgerHQHardwareWallet, [32]byte{1})

	obs.KindStarted(factors.Device, 2)
	obs.KindStarted(factors.LedgerHQHardwareWallet, 1)
	obs.FactorSourceSigned(factors.MustFactorSourceIDFromHash(factors.Device, [32]byte{2}), 3)
	obs.FactorSourceNeglected(signing.NeglectedFactor{Reason: signing.UserExplicitlySkipped, FactorSourceID: ledger})
	obs.InteractorFailed(factors.LedgerHQHardwareWallet, errors.New("unplugged"))
	obs.FinishedEarly(1)
	obs.Finished(signing.Summary{Purpose: signing.SignTX(matrix.Primary), Successful: 2, Failed: 1, Elapsed: time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.kindBatches.WithLabelValues("signing", "device")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.signed.WithLabelValues("device")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.neglected.WithLabelValues("ledgerHQHardwareWallet", "userExplicitlySkipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactorErrors.WithLabelValues("signing", "ledgerHQHardwareWallet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finishedEarly))

	purpose := signing.SignTX(matrix.Primary).String()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.payloads.WithLabelValues(purpose, "successful")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payloads.WithLabelValues(purpose, "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestDerivationObserver(t *testing.T) {
	m := New()
	obs := m.DerivationObserver()

	obs.KindStarted(factors.ArculusCard, 1)
	obs.KindFinished(factors.ArculusCard, 0, errors.New("card removed"))
	obs.KindFinished(factors.Device, 4, nil)
	obs.Finished(derivation.CreatingNewAccount, 4, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.kindBatches.WithLabelValues("derivation", "arculusCard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactorErrors.WithLabelValues("derivation", "arculusCard")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.interactorErrors.WithLabelValues("derivation", "device")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.derivedKeys.WithLabelValues(derivation.CreatingNewAccount.String())))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.SigningObserver().FinishedEarly(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "walletcore_signing_finished_early_total 1"))
}

func TestRequestServed(t *testing.T) {
	m := New()

	m.RequestServed("sign", 20*time.Millisecond, nil)
	m.RequestServed("sign", 5*time.Millisecond, errors.New("bad request"))
	m.RequestServed("derive", time.Millisecond, nil)

	assert.Equal(t, 3, testutil.CollectAndCount(m.hostRequests))
}
