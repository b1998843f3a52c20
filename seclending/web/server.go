/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/views"
)

var logger = flogging.MustGetLogger("seclending.web")

// PartyResolver maps an endpoint name to the party's identity
type PartyResolver func(name string) (view.Identity, error)

// Server is the thin HTTP query surface for the GUI and CLI layers
type Server struct {
	listenAddress string
	router        *mux.Router
	vault         *ledger.Vault
	me            view.Identity
	resolve       PartyResolver
}

func NewServer(listenAddress string, vault *ledger.Vault, me view.Identity, resolve PartyResolver) *Server {
	s := &Server{
		listenAddress: listenAddress,
		router:        mux.NewRouter(),
		vault:         vault,
		me:            me,
		resolve:       resolve,
	}
	s.router.HandleFunc("/loans", s.loansBetween).Methods(http.MethodGet)
	s.router.HandleFunc("/loans/{id}", s.retrieveLoan).Methods(http.MethodGet)
	return s
}

// Router exposes the handler, tests drive it directly
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Start() error {
	logger.Infof("query surface listening on [%s]", s.listenAddress)
	return http.ListenAndServe(s.listenAddress, s.router)
}

type loanView struct {
	LinearID string  `json:"linear_id"`
	Code     string  `json:"code"`
	Quantity int64   `json:"quantity"`
	Lender   string  `json:"lender"`
	Borrower string  `json:"borrower"`
	Margin   float64 `json:"margin"`
}

func (s *Server) loansBetween(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("party")
	if len(name) == 0 {
		writeError(w, http.StatusBadRequest, "missing party parameter")
		return
	}
	party, err := s.resolve(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	loans, err := views.LoansBetween(s.vault, s.me, party)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var res []loanView
	for _, l := range loans {
		res = append(res, newLoanView(&l))
	}
	writeJSON(w, res)
}

func (s *Server) retrieveLoan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	loan, err := views.FindLoan(s.vault, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, newLoanView(loan))
}

func newLoanView(l *views.LoanAndRef) loanView {
	return loanView{
		LinearID: l.Loan.LinearID,
		Code:     l.Loan.Code,
		Quantity: l.Loan.Quantity,
		Lender:   l.Loan.Lender.UniqueID(),
		Borrower: l.Loan.Borrower.UniqueID(),
		Margin:   l.Loan.Terms.Margin,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
