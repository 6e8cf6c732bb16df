package doab

// NotAvailable is substituted for any field that could not be extracted.
const NotAvailable = "N/A"

// HandleBaseURL prefixes a record handle to build its canonical URL.
const HandleBaseURL = "https://directory.doabooks.org/handle/"

// Book is a normalized book record.
type Book struct {
	Title   string `json:"Title"`
	Authors string `json:"Author(s)/Contributors"`
	Year    string `json:"Year"`
	URL     string `json:"URL"`
}
