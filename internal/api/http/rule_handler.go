package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
)

func ruleIDFromPath(r *http.Request) (domain.RuleID, error) {
	return domain.NewRuleID(mux.Vars(r)["id"])
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": resp})
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rule, err := h.rules.CreateRule(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "create", rule.ID)
	writeJSON(w, http.StatusCreated, toRuleResponse(*rule))
}

// ValidateRule reports issues for a rule body without storing it.
func (h *Handler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := req.toRule()
	if err != nil {
		writeError(w, r, err)
		return
	}
	issues := h.rules.ValidateRule(rule)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": toIssueResponses(issues),
	})
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ActivateRule(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := h.rules.SetActive(r.Context(), id, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, fmt.Sprintf("set_active=%t", active), id)
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *Handler) UpdatePercentage(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PercentageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pct, err := domain.ParsePercentage(req.Percentage.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := h.rules.UpdatePercentage(r.Context(), id, pct)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "update_percentage", id)
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *Handler) UpdateVATExemption(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req VATExemptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsVATExempt == nil {
		writeError(w, r, fmt.Errorf("%w: is_vat_exempt is required", errBadRequest))
		return
	}
	rule, err := h.rules.UpdateVATExemption(r.Context(), id, *req.IsVATExempt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "update_vat_exemption", id)
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *Handler) AddCondition(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ConditionDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cond, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rule, err := h.rules.AddCondition(r.Context(), id, cond)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "add_condition", id)
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

func (h *Handler) RemoveCondition(w http.ResponseWriter, r *http.Request) {
	id, err := ruleIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: condition index: %v", errBadRequest, err))
		return
	}
	rule, err := h.rules.RemoveCondition(r.Context(), id, index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "remove_condition", id, "index", index)
	writeJSON(w, http.StatusOK, toRuleResponse(*rule))
}

// RefreshRules reloads the engine from the rule store right away.
func (h *Handler) RefreshRules(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		writeError(w, r, fmt.Errorf("rule refresh is not configured"))
		return
	}
	result, err := h.refresher.RefreshDiscountRulesNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rejected := make([]string, 0, len(result.Rejected))
	for _, id := range result.Rejected {
		rejected = append(rejected, string(id))
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Loaded:   result.Loaded,
		Issues:   toIssueResponses(result.Issues),
		Rejected: rejected,
	})
}

func (h *Handler) audit(r *http.Request, action string, id domain.RuleID, args ...any) {
	subject := ""
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	logger.InfoContext(r.Context(), "Discount rule changed",
		append([]any{"action", action, "rule_id", id, "subject", subject}, args...)...)
}
