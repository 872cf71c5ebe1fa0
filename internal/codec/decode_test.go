package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

func TestDecode_BasicContact(t *testing.T) {
	batch, err := Decode("cards.csv", "companyName,name\nAcme Inc,Jane Doe")
	require.NoError(t, err)
	require.Equal(t, Format{Kind: KindContacts, Dialect: DialectCSV}, batch.Format)
	require.Len(t, batch.Contacts, 1)

	c := batch.Contacts[0]
	require.Equal(t, "Acme Inc", *c.CompanyName)
	require.Equal(t, "Jane Doe", *c.Name)

	// Everything else absent
	want := record.Contact{CompanyName: record.String("Acme Inc"), Name: record.String("Jane Doe")}
	require.Equal(t, want, c)
}

func TestDecodeContactsCSV_UnknownColumnIgnored(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,faxExtension,name\nAcme,123,Jane")

	require.Len(t, contacts, 1)
	require.Equal(t, "Acme", *contacts[0].CompanyName)
	require.Equal(t, "Jane", *contacts[0].Name)
}

func TestDecodeContactsCSV_ShortRowLeavesFieldsAbsent(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,email,tags\nAcme,Jane")

	require.Len(t, contacts, 1)
	require.Nil(t, contacts[0].Email)
	require.Nil(t, contacts[0].Tags)
}

func TestDecodeContactsCSV_PresentEmptyIsNotAbsent(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,email\nAcme,Jane,")

	require.Len(t, contacts, 1)
	require.NotNil(t, contacts[0].Email)
	require.Equal(t, "", *contacts[0].Email)
}

func TestDecodeContactsCSV_EmptyListValue(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unquoted empty", "companyName,name,website\nAcme,Jane,"},
		{"quoted empty", "companyName,name,website\nAcme,Jane,\"\""},
		{"only separators", "companyName,name,website\nAcme,Jane,; ;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contacts := DecodeContactsCSV(tt.text)
			require.Len(t, contacts, 1)
			require.NotNil(t, contacts[0].Website)
			require.Empty(t, contacts[0].Website)
		})
	}
}

func TestDecodeContactsCSV_Lists(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,website,sns,tags\nAcme,Jane,https://a.test; https://b.test,@jane,vip;2024;vip")

	require.Len(t, contacts, 1)
	c := contacts[0]
	require.Equal(t, []string{"https://a.test", "https://b.test"}, c.Website)
	require.Equal(t, []string{"@jane"}, c.SNS)
	require.Equal(t, []string{"vip", "2024", "vip"}, c.Tags)
}

func TestDecodeContactsCSV_CustomFields(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,customFields\nAcme,Jane,\"birthday:04-01;hobby;url:https://x.test\"")

	require.Len(t, contacts, 1)
	require.Equal(t, []record.CustomField{
		{Key: "birthday", Value: "04-01"},
		{Key: "hobby", Value: ""},
		{Key: "url", Value: "https://x.test"},
	}, contacts[0].CustomFields)
}

func TestDecodeContactsCSV_Classification(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,classification\nA,B,顧客\nC,D,\nE,F,vendor")

	require.Len(t, contacts, 3)
	require.Equal(t, record.ClassCustomer, *contacts[0].Classification)
	require.Nil(t, contacts[1].Classification)
	require.Equal(t, record.ClassOther, *contacts[2].Classification)
}

func TestDecodeContactsCSV_MultilineNotes(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name,notes\nAcme,Jane,\"line1\nline2\"\nBeta,John,x")

	require.Len(t, contacts, 2)
	require.Equal(t, "line1\nline2", *contacts[0].Notes)
	require.Equal(t, "Beta", *contacts[1].CompanyName)
}

func TestDecodeContactsCSV_BlankRowsDropped(t *testing.T) {
	contacts := DecodeContactsCSV("companyName,name\n\nAcme,Jane\n   \nBeta,John\n")

	require.Len(t, contacts, 2)
}

func TestDecodeContactsCSV_HeaderOrderIrrelevant(t *testing.T) {
	contacts := DecodeContactsCSV("name,companyName\nJane,Acme")

	require.Equal(t, "Jane", *contacts[0].Name)
	require.Equal(t, "Acme", *contacts[0].CompanyName)
}

func TestDecodePoliciesCSV(t *testing.T) {
	policies := DecodePoliciesCSV("title,fields,imageUrls\nAuto,insurer:Tokio;premium:12000,http://img\nHome,")

	require.Len(t, policies, 2)
	require.Equal(t, "Auto", policies[0].Title)
	require.Equal(t, []record.PolicyField{
		{Key: "insurer", Value: "Tokio"},
		{Key: "premium", Value: "12000"},
	}, policies[0].Fields)
	require.Nil(t, policies[0].ImageURLs)
	require.Equal(t, "Home", policies[1].Title)
	require.Empty(t, policies[1].Fields)
}

func TestDecodePolicies_ValueWithColon(t *testing.T) {
	policies := DecodePoliciesCSV("title,fields\nAuto,period:10:00-18:00")

	require.Equal(t, []record.PolicyField{{Key: "period", Value: "10:00-18:00"}}, policies[0].Fields)
}

func TestDecodeContactsTXT(t *testing.T) {
	text := ContactMarker + "\n" +
		"会社名: Acme\n" +
		"氏名: Jane Doe\n" +
		"Web: https://a.test;https://b.test\n" +
		"分類: 取引先\n" +
		"誕生日: 04-01\n" +
		"\n" +
		ContactMarker + "\n" +
		"会社名: Beta\n" +
		"氏名: John\n" +
		ContactMarker + "\n" +
		"unknown: dropped\n"

	contacts := DecodeContactsTXT(text)

	require.Len(t, contacts, 2)
	require.Equal(t, "Acme", *contacts[0].CompanyName)
	require.Equal(t, "Jane Doe", *contacts[0].Name)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, contacts[0].Website)
	require.Equal(t, record.ClassClient, *contacts[0].Classification)
	require.Nil(t, contacts[0].CustomFields)
	require.Equal(t, "Beta", *contacts[1].CompanyName)
}

func TestDecodePoliciesTXT(t *testing.T) {
	text := "Analysis Data: Auto\ninsurer: Tokio\nperiod: 10:00-18:00\n\nAnalysis Data: Home\nnote\n"

	policies := DecodePoliciesTXT(text)

	require.Len(t, policies, 2)
	require.Equal(t, "Auto", policies[0].Title)
	require.Equal(t, []record.PolicyField{
		{Key: "insurer", Value: "Tokio"},
		{Key: "period", Value: "10:00-18:00"},
	}, policies[0].Fields)
	require.Equal(t, []record.PolicyField{{Key: "note", Value: ""}}, policies[1].Fields)
}

func TestDecode_ErrorsAbortWholeFile(t *testing.T) {
	_, err := Decode("cards.xlsx", "companyName,name\nA,B")
	require.True(t, errors.Is(err, errors.ErrUnsupportedFormat))

	_, err = Decode("cards.csv", "foo,bar\nA,B")
	require.True(t, errors.Is(err, errors.ErrUnrecognizedSchema))
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{}, SplitList(""))
	require.Equal(t, []string{"a"}, SplitList("a"))
	require.Equal(t, []string{"a", "b"}, SplitList(" a ; b ;"))
}
