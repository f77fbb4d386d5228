package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/votearena/backend/internal/models"
)

func testMovement() models.SettlementMovement {
	return models.SettlementMovement{
		Reference: "VOTE-9F3A2B1C",
		UserID:    42,
		AccountID: "WALLET-42",
		Type:      "vote",
		Amount:    200,
		Currency:  "NGN",
		Status:    "COMPLETED",
		CreatedAt: time.Now(),
	}
}

func TestSettlementService_CreatePacs008(t *testing.T) {
	redisClient, _ := redismock.NewClientMock()
	service := NewSettlementService(redisClient)

	t.Run("builds a credit transfer for the movement", func(t *testing.T) {
		m := testMovement()

		doc, err := service.CreatePacs008(&m)
		assert.NoError(t, err)
		assert.NotEmpty(t, doc.GrpHdr.MsgId)
		assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
		assert.Len(t, doc.CdtTrfTxInf, 1)
		assert.Equal(t, m.Reference, string(doc.CdtTrfTxInf[0].PmtId.EndToEndId))
		assert.Equal(t, float64(200), doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Value)
		assert.Equal(t, "NGN", string(doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Ccy))
	})

	t.Run("defaults currency when missing", func(t *testing.T) {
		m := testMovement()
		m.Currency = ""

		doc, err := service.CreatePacs008(&m)
		assert.NoError(t, err)
		assert.Equal(t, "NGN", string(doc.CdtTrfTxInf[0].IntrBkSttlmAmt.Ccy))
	})
}

func TestSettlementService_CreatePacs002(t *testing.T) {
	redisClient, _ := redismock.NewClientMock()
	service := NewSettlementService(redisClient)

	t.Run("carries the original reference and status", func(t *testing.T) {
		m := testMovement()

		doc, err := service.CreatePacs002(&m, "ACCP")
		assert.NoError(t, err)
		assert.Len(t, doc.TxInfAndSts, 1)
		assert.Equal(t, m.Reference, string(*doc.TxInfAndSts[0].OrgnlEndToEndId))
		assert.Equal(t, "ACCP", string(*doc.TxInfAndSts[0].TxSts))
	})
}

func TestSettlementService_ConvertToXML(t *testing.T) {
	redisClient, _ := redismock.NewClientMock()
	service := NewSettlementService(redisClient)

	m := testMovement()
	doc, err := service.CreatePacs008(&m)
	assert.NoError(t, err)

	xmlData, err := service.ConvertToXML(doc)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(xmlData, "<?xml"))
	assert.Contains(t, xmlData, m.Reference)
}

func TestSettlementService_ExportSettlement(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	service := NewSettlementService(redisClient)

	t.Run("exports queued movements then trims the batch", func(t *testing.T) {
		m := testMovement()
		raw, _ := json.Marshal(m)

		redisMock.ExpectLRange(settlementQueueKey, 0, settlementExportBatch-1).SetVal([]string{string(raw)})
		redisMock.ExpectLTrim(settlementQueueKey, 1, -1).SetVal("OK")

		r := httptest.NewRequest("POST", "/settlement/export", nil)
		w := httptest.NewRecorder()

		service.ExportSettlement(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "exported", response["status"])
		assert.Equal(t, "pacs.008.001.08", response["messageType"])
		assert.Equal(t, float64(1), response["exported"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("empty queue exports nothing and trims nothing", func(t *testing.T) {
		redisMock.ExpectLRange(settlementQueueKey, 0, settlementExportBatch-1).SetVal([]string{})

		r := httptest.NewRequest("POST", "/settlement/export", nil)
		w := httptest.NewRecorder()

		service.ExportSettlement(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, float64(0), response["exported"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("queue read failure leaves the batch queued", func(t *testing.T) {
		redisMock.ExpectLRange(settlementQueueKey, 0, settlementExportBatch-1).SetErr(assert.AnError)

		r := httptest.NewRequest("POST", "/settlement/export", nil)
		w := httptest.NewRecorder()

		service.ExportSettlement(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		// No LTrim expectation: the queue must keep its entries.
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("malformed entries are skipped but still trimmed", func(t *testing.T) {
		m := testMovement()
		raw, _ := json.Marshal(m)

		redisMock.ExpectLRange(settlementQueueKey, 0, settlementExportBatch-1).SetVal([]string{"not-json", string(raw)})
		redisMock.ExpectLTrim(settlementQueueKey, 2, -1).SetVal("OK")

		r := httptest.NewRequest("POST", "/settlement/export", nil)
		w := httptest.NewRecorder()

		service.ExportSettlement(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, float64(1), response["exported"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestSettlementService_AcknowledgeMovement(t *testing.T) {
	redisClient, _ := redismock.NewClientMock()
	service := NewSettlementService(redisClient)

	t.Run("successful acknowledgement", func(t *testing.T) {
		m := testMovement()

		body, _ := json.Marshal(m)
		r := httptest.NewRequest("POST", "/settlement/acknowledge", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.AcknowledgeMovement(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "acknowledged", response["status"])
		assert.Equal(t, "pacs.002.001.08", response["messageType"])
		assert.NotEmpty(t, response["xml"])
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/settlement/acknowledge", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.AcknowledgeMovement(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("movement without a reference fails validation", func(t *testing.T) {
		m := testMovement()
		m.Reference = ""

		body, _ := json.Marshal(m)
		r := httptest.NewRequest("POST", "/settlement/acknowledge", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.AcknowledgeMovement(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Reference")
	})
}
