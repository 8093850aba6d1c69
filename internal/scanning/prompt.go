package scanning

import "strings"

// receiptScanPrompt is the fixed instruction sent with every receipt image.
// The field names here are the ones MapFields understands.
var receiptScanPrompt = `Please analyze this receipt and extract the following information as a single JSON object with these exact field names:

- "company": the merchant or business name
- "date": the transaction date in ISO format YYYY-MM-DD
- "time": the transaction time as printed, e.g. "14:32"
- "items": the purchased items as a short comma separated list
- "subtotal": the amount before tax and tip, as a number
- "tax": the tax amount, as a number
- "tip": the tip or gratuity, as a number
- "total": the final amount paid, as a number
- "amount": the same value as "total"
- "category": one of: ` + strings.Join(Categories, ", ") + `
- "notes": a brief business purpose based on the items or establishment, e.g. "Team lunch meeting", "Office supplies purchase", "Client dinner at Restaurant Name"

If you can't determine a field, use null. Amounts must be numbers without currency symbols.
Return ONLY the JSON object. Do not use markdown code blocks.`
