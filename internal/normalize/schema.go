package normalize

// #region schemas

const (
	claimSchemaURL   = "https://negotiator.schemas.local/claim.schema.json"
	emotionSchemaURL = "https://negotiator.schemas.local/emotion.schema.json"
)

// Only shapes are checked here. Ranges are clamped by the typed pass so an
// out-of-range stress level becomes 1, not the zero default.
const claimSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "claim_id": {"type": "string"},
    "policy_number": {"type": "string"},
    "claim_type": {"type": "string"},
    "estimated_amount": {"type": "number"},
    "customer_id": {"type": "string"},
    "incident_date": {"type": "string"},
    "reported_date": {"type": "string"},
    "description": {"type": "string"},
    "supporting_documents": {"type": "array", "items": {"type": "string"}},
    "jurisdiction": {"type": "string", "pattern": "^[A-Za-z]{2}$"},
    "fraud_risk_score": {"type": "number"}
  }
}`

const emotionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "primary_emotion": {"type": "string"},
    "stress_level": {"type": "number"},
    "confidence": {"type": "number"},
    "emotion_scores": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "transcript": {"type": "string"}
  }
}`

// #endregion schemas
