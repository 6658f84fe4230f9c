package roster

// Header aliases per logical field, in priority order. The first alias that
// is present with a non-blank value wins. Header lookup is exact first and
// then case-insensitive, so only genuinely different spellings need listing.
var (
	NameHeaders = []string{
		"name",
		"Fullname",
		"fullName",
		"fullname",
		"Full Name",
		"full_name",
		"Member Name",
	}

	FirstNameHeaders = []string{
		"firstName",
		"FirstName",
		"first_name",
		"First Name",
		"firstname",
	}

	LastNameHeaders = []string{
		"lastName",
		"LastName",
		"last_name",
		"Last Name",
		"surname",
		"Surname",
	}

	EmailHeaders = []string{
		"email",
		"Email",
		"emailAddress",
		"Email Address",
		"email_address",
	}

	NumberHeaders = []string{
		"chandaNumber",
		"ChandaNO",
		"chandaNo",
		"ChandaNumber",
		"chanda_number",
		"Chanda Number",
		"membershipNumber",
		"MembershipNumber",
		"membership_number",
		"Membership Number",
	}
)
