package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/votearena/backend/internal/config"
	"github.com/votearena/backend/internal/models"
)

const settlementExportBatch = 100

// SettlementService drains committed wallet movements off the settlement
// queue and exports them as ISO 20022 credit transfer messages for the
// downstream payout rail.
type SettlementService struct {
	redis     *redis.Client
	validator *ValidationHelper
	currency  string
}

func NewSettlementService(redisClient *redis.Client) *SettlementService {
	return &SettlementService{
		redis:     redisClient,
		validator: NewValidationHelper(),
		currency:  config.LoadVotingConfig().Currency,
	}
}

// ExportSettlement drains the settlement queue and converts each movement
// @Summary Export settlement batch
// @Description Drain queued wallet movements and export them as pacs.008 messages
// @Tags settlement
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{status=string,exported=int,messages=[]string}
// @Failure 500 {object} map[string]string
// @Router /settlement/export [post]
func (s *SettlementService) ExportSettlement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	movements, queued, err := s.peekQueue(r.Context(), settlementExportBatch)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	var messages []string
	for i := range movements {
		pacs008, err := s.CreatePacs008(&movements[i])
		if err != nil {
			SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
			return
		}

		xmlData, err := s.ConvertToXML(pacs008)
		if err != nil {
			SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
			return
		}

		if err := s.SendToSettlement(pacs008); err != nil {
			SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
			return
		}

		messages = append(messages, xmlData)
	}

	// The batch leaves the queue only once every message went out, so a
	// failure above leaves it queued for the next export.
	s.trimQueue(r.Context(), queued)

	log.Printf("[SETTLEMENT] Exported %d movements", len(movements))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "exported",
		"messageType": "pacs.008.001.08",
		"exported":    len(movements),
		"messages":    messages,
	})
}

// AcknowledgeMovement builds a pacs.002 status report for a movement
// @Summary Acknowledge settlement movement
// @Description Build a pacs.002 payment status report for a settled movement
// @Tags settlement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param movement body models.SettlementMovement true "Movement to acknowledge"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 500 {object} map[string]string
// @Router /settlement/acknowledge [post]
func (s *SettlementService) AcknowledgeMovement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.SettlementMovement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	pacs002, err := s.CreatePacs002(&req, "ACCP")
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	xmlData, err := s.ConvertToXML(pacs002)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "acknowledged",
		"messageType": "pacs.002.001.08",
		"xml":         xmlData,
	})
}

// peekQueue reads up to max entries off the settlement queue without
// removing them. Returns the raw entry count alongside the decoded
// movements so trimQueue can drop malformed entries too.
func (s *SettlementService) peekQueue(ctx context.Context, max int) ([]models.SettlementMovement, int64, error) {
	if s.redis == nil {
		return nil, 0, nil
	}

	raw, err := s.redis.LRange(ctx, settlementQueueKey, 0, int64(max)-1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read settlement queue: %w", err)
	}

	var movements []models.SettlementMovement
	for _, entry := range raw {
		var m models.SettlementMovement
		if err := json.Unmarshal([]byte(entry), &m); err != nil {
			log.Printf("[SETTLEMENT] Skipping malformed queue entry: %v", err)
			continue
		}
		movements = append(movements, m)
	}
	return movements, int64(len(raw)), nil
}

func (s *SettlementService) trimQueue(ctx context.Context, n int64) {
	if s.redis == nil || n == 0 {
		return
	}
	if err := s.redis.LTrim(ctx, settlementQueueKey, n, -1).Err(); err != nil {
		log.Printf("[SETTLEMENT] Failed to trim exported batch: %v", err)
	}
}

func (s *SettlementService) SendToSettlement(doc interface{}) error {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	// TODO: Implement actual settlement system integration
	log.Printf("[SETTLEMENT] Sending to settlement: %d bytes", len(xmlData))
	return nil
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
// for a queued wallet movement.
func (s *SettlementService) CreatePacs008(m *models.SettlementMovement) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()

	currency := m.Currency
	if currency == "" {
		currency = s.currency
	}
	amount := float64(m.Amount)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(m.Reference)}[0],
					EndToEndId: common.Max35Text(m.Reference),
					TxId:       &[]common.Max35Text{common.Max35Text(m.Reference)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier("VOTEARNA")}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(fmt.Sprintf("USER-%d", m.UserID))}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(m.AccountID),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(m.AccountID)}[0],
				},
			},
		},
	}

	return doc, nil
}

// CreatePacs002 creates a pacs.002 payment status report
func (s *SettlementService) CreatePacs002(m *models.SettlementMovement, status string) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(m.Reference)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(m.Reference)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(m.Reference)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0], // ACCP, RJCT, ACSC, etc.
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts an ISO 20022 document to an XML string
func (s *SettlementService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
