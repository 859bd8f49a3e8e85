package analyzer

// extractionPrompt pins the exact output contract: a flat JSON object with
// the six financial fields, explicit nulls for anything not found, and no
// prose or code fences around the payload.
const extractionPrompt = `You are a financial analyst. Analyze this Annual Report PDF.
Extract the following data points into a strictly valid JSON format:

1. "company_name": String
2. "fiscal_year": String
3. "total_revenue": Number (consolidated, in the report's stated unit)
4. "net_income": Number
5. "total_assets": Number
6. "total_liabilities": Number

If a value is not found, return null.
Do not include markdown formatting like ` + "```json" + `. Just return the raw JSON string.`
