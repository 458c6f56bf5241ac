package usecase

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"loantrack-core/internal/domain/entity"
)

// commandSchema is the machine-checked half of the parser contract: the
// exact shape the model must produce. The prompt states the same rules in
// prose; this schema is what the server actually enforces. followup_question
// is only type-checked when need_followup is true; otherwise the normalizer
// discards whatever the model put there.
const commandSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["action", "message", "need_followup"],
  "properties": {
    "action": {
      "type": "string",
      "enum": ["create_loan", "add_payment", "get_loans", "delete_loan", "unknown"]
    },
    "parameters": {"type": "object"},
    "message": {"type": "string", "minLength": 1},
    "need_followup": {"type": "boolean"}
  },
  "if": {
    "properties": {"need_followup": {"const": true}},
    "required": ["need_followup"]
  },
  "then": {
    "properties": {"followup_question": {"type": ["string", "null"]}}
  }
}`

var commandSchemaLoader = gojsonschema.NewStringLoader(commandSchema)

// ValidateContract checks extracted JSON against the ParsedCommand schema.
// Violations are ErrContractViolation with the first schema error attached.
func ValidateContract(raw map[string]any) error {
	result, err := gojsonschema.Validate(commandSchemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrContractViolation, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %s", entity.ErrContractViolation, result.Errors()[0].String())
	}
	return nil
}

// BuildSystemPrompt produces the deterministic instruction text for the
// model. today is the current date as YYYY-MM-DD in the reference timezone;
// parties is the closed set of canonical payer names.
func BuildSystemPrompt(today string, parties []string, defaultPayer string) string {
	names := strings.Join(parties, `" or "`)
	return fmt.Sprintf(`You are a strict JSON parser for a two-person loan and payment tracker.
Users write informal English commands about loans and payments.

You MUST respond with ONLY a single raw JSON object. No prose. No markdown.
No tool calls.

Response format (exactly these five fields):

{
  "action": "create_loan" | "add_payment" | "get_loans" | "delete_loan" | "unknown",
  "parameters": { ... },
  "message": "short human-readable status",
  "need_followup": true | false,
  "followup_question": "string or null"
}

Actions and their parameters:

- "create_loan": user records a new loan.
  Required: "loan_name" (string), "amount" (number), "loan_date" (YYYY-MM-DD),
  "term_months" (number). Optional: "loan_type", "lender".
  If ANY required field is missing, set need_followup=true and ask exactly ONE
  question that names ALL missing fields together, not one at a time.
- "add_payment": user records a payment against an existing loan.
  Required: "loan_name" (string), "amount" (number).
  Optional: "paid_by", "payment_date" (YYYY-MM-DD).
- "get_loans": user asks to see loans or progress.
  Optional: "loan_name" to narrow to one loan.
- "delete_loan": user removes a loan. Required: "loan_name" or "loan_id".
- "unknown": the message cannot be mapped to one of the four actions.
  Use need_followup=false and an explanatory message. NEVER guess an action.

Extraction rules:

- Dates: output absolute YYYY-MM-DD only. Resolve relative phrases like
  "yesterday" or "last Friday" against today's date given below.
- Loan names: prefer quoted substrings verbatim. Otherwise take the object of
  "for X", "on X", or "to X"; strip a leading "the " and a trailing "loan";
  trim punctuation.
- Amounts: prefer the number next to "$", "amount", "price", or "total".
  Otherwise take the largest number in the message that is not part of a date.
- "paid_by" must be exactly "%s" (case-insensitive match on input, canonical
  casing on output). When the message does not say who paid, omit the field;
  the default is %s.

Today's date is: %s`, names, defaultPayer, today)
}

// promptOverride is appended on every call. The model occasionally drifts
// from the base instructions, so the constraint is restated last.
const promptOverride = `

OVERRIDE: respond with exactly one JSON object and nothing else. Do not call
any tool. Do not wrap the object in markdown fences.`
