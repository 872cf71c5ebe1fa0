package mcp

import "github.com/mark3labs/mcp-go/mcp"

var contactListToolDef = mcp.NewTool("contact_list",
	mcp.WithDescription("List business-card contacts in insertion order, optionally filtered by a case-insensitive query over company, name, furigana, department, email and tags."),
	mcp.WithString("query", mcp.Description("Substring filter")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default 0)")),
)

var contactFetchToolDef = mcp.NewTool("contact_fetch",
	mcp.WithDescription("Fetch one contact by ID. The contact moves to the front of the recently viewed list."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
)

var contactRecentToolDef = mcp.NewTool("contact_recent",
	mcp.WithDescription("List recently viewed contacts, newest first."),
)

var contactDeleteToolDef = mcp.NewTool("contact_delete",
	mcp.WithDescription("Permanently delete a contact."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
)

var contactImportToolDef = mcp.NewTool("contact_import",
	mcp.WithDescription("Import a .csv or .txt file of contacts or policies. The record kind is detected from the file. "+
		"Records whose identity (company + name for contacts, title for policies) already exists are skipped."),
	mcp.WithString("path", mcp.Required(), mcp.Description("File path, directly inside the exports dir or an allowed path")),
)

var contactExportToolDef = mcp.NewTool("contact_export",
	mcp.WithDescription("Export contacts or policies to a csv, txt or xlsx file."),
	mcp.WithString("kind", mcp.Enum("contacts", "policies"), mcp.Description("Record kind (default contacts)")),
	mcp.WithString("format", mcp.Enum("csv", "txt", "xlsx"), mcp.Description("Output format (default from path extension, else csv)")),
	mcp.WithString("path", mcp.Description("Output path (default <data dir>/exports/<kind>-<timestamp>.<format>)")),
)

var policyListToolDef = mcp.NewTool("policy_list",
	mcp.WithDescription("List analyzed documents (policies), optionally filtered by a query over title and field values."),
	mcp.WithString("query", mcp.Description("Substring filter")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default 0)")),
)

var policyFetchToolDef = mcp.NewTool("policy_fetch",
	mcp.WithDescription("Fetch one policy by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Policy ID")),
)

var policyDeleteToolDef = mcp.NewTool("policy_delete",
	mcp.WithDescription("Permanently delete a policy."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Policy ID")),
)

var columnApplyToolDef = mcp.NewTool("column_apply",
	mcp.WithDescription("Fill an xlsx template from stored records. The template's first row is mapped to record fields; "+
		"one row per record is appended below the template's existing rows."),
	mcp.WithString("template", mcp.Required(), mcp.Description("Path of the .xlsx template")),
	mcp.WithString("out", mcp.Description("Output .xlsx path (default <data dir>/exports/<kind>-filled-<timestamp>.xlsx)")),
	mcp.WithString("kind", mcp.Enum("contacts", "policies"), mcp.Description("Record kind (default contacts)")),
	mcp.WithObject("set", mcp.Description(`Manual mapping of template header to field name; "" marks a column as not mapped`)),
	mcp.WithBoolean("propose", mcp.Description("Ask the extraction service to map columns not covered by set")),
)
