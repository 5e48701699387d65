package http

import (
	"errors"
	"net/http"

	"strafen/internal/core"
	"strafen/internal/log"
)

type addEntryResponse struct {
	Status    string     `json:"status"`
	Kind      string     `json:"kind"`
	Rule      string     `json:"rule"`
	Vergehen  string     `json:"vergehen"`
	Kosten    string     `json:"kosten_final"`
	Appended  [][]string `json:"appended"`
	RowsAdded int        `json:"rows"`
}

type saldoResponse struct {
	Name          string              `json:"name"`
	SaldoEuro     float64             `json:"saldo_euro"`
	Saldo         string              `json:"saldo"`
	Kisten        int                 `json:"kisten"`
	KistenOffen   int                 `json:"kisten_offen"`
	KistenBezahlt int                 `json:"kisten_bezahlt"`
	Eintraege     []map[string]string `json:"eintraege"`
}

type eintraegeResponse struct {
	Eintraege []map[string]string `json:"eintraege"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var err error
	if s.ready != nil {
		err = s.ready(ctx)
	} else {
		_, err = s.ledger.Catalog(ctx)
	}
	if err != nil {
		s.events.LogError(ctx, "Readiness check failed", err, log.ComponentHTTP, log.OpCatalog, nil)
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub := p.Submission()
	if err := sub.Validate(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Rejected submission",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err.Error())
		writeError(w, statusFor(err), err.Error())
		return
	}

	res, err := s.ledger.Record(ctx, sub)
	if err != nil {
		s.fail(w, r, err, log.OpRecord, log.NewFields().WithMember(sub.Name))
		return
	}

	rowsRecorded.WithLabelValues(string(res.Kind)).Add(float64(len(res.Rows)))
	s.events.LogEntryRecorded(ctx, sub.Name, sub.Infraction, string(res.Kind), len(res.Rows), res.Cost.String())

	writeJSON(w, http.StatusOK, addEntryResponse{
		Status:    "ok",
		Kind:      string(res.Kind),
		Rule:      res.Rule,
		Vergehen:  res.Label,
		Kosten:    res.Cost.String(),
		Appended:  core.LedgerValues(res.Rows),
		RowsAdded: len(res.Rows),
	})
}

func (s *Server) handleGetSaldo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := memberParam(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	sum, rows, err := s.ledger.Balance(ctx, name)
	if err != nil {
		s.fail(w, r, err, log.OpBalance, log.NewFields().WithMember(name))
		return
	}

	total := sum.MoneyTotal()
	writeJSON(w, http.StatusOK, saldoResponse{
		Name:          name,
		SaldoEuro:     total.InexactFloat64(),
		Saldo:         core.FormatEuro(total),
		Kisten:        sum.UnitBalance(),
		KistenOffen:   sum.UnitDebts,
		KistenBezahlt: sum.UnitPayments,
		Eintraege:     rowFields(rows),
	})
}

func (s *Server) handleGetEintraege(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := memberParam(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	rows, err := s.ledger.Entries(ctx, name)
	if err != nil {
		s.fail(w, r, err, log.OpEntries, log.NewFields().WithMember(name))
		return
	}
	writeJSON(w, http.StatusOK, eintraegeResponse{Eintraege: rowFields(rows)})
}

// fail logs a ledger error and writes the mapped response. Store details are
// not exposed to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string, fields log.LogFields) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusBadGateway {
		storeFailures.WithLabelValues(op).Inc()
		msg = "ledger store unavailable"
	}
	s.events.LogError(r.Context(), "Ledger operation failed", err, log.ComponentLedger, op, fields)
	writeError(w, status, msg)
}
