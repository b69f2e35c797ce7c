package portal

// StrategySet holds the selector fallback chains for each portal
// interaction. The portal is an Angular app whose generated IDs shift
// between deployments, so every interaction carries alternatives tried in
// order.
type StrategySet struct {
	LoginURL string
	FormURL  string
	BatchURL string

	Username    []string
	Password    []string
	LoginButton []string

	// Overlays dismissed before interacting with any page.
	AcceptModal []string
	Dismiss     []string

	// Single-record form fields.
	SSN        []string
	LastName   []string
	FirstName  []string
	MiddleName []string
	BirthDate  []string
	DutyDate   []string

	// Terms-of-use checkbox on the form.
	Agreement []string

	Submit []string

	// Multiple-record upload page.
	BatchFile   []string
	BatchSubmit []string

	// Present only after a successful login.
	LoggedIn []string
}

// Defaults returns the selector strategies for the SCRA portal as last
// mapped.
func Defaults() StrategySet {
	return StrategySet{
		LoginURL: "https://scra.dmdc.osd.mil/scra/#/login",
		FormURL:  "https://scra.dmdc.osd.mil/scra/#/single-record",
		BatchURL: "https://scra.dmdc.osd.mil/scra/#/multiple-record",

		Username: []string{
			`input[name="username"]`,
			`input[id="username"]`,
		},
		Password: []string{
			`input[name="password"]`,
			`input[id="password"]`,
		},
		LoginButton: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
		},

		AcceptModal: []string{
			`.modal-content button.accept`,
			`.modal-content button.btn-primary`,
		},
		Dismiss: []string{
			`.modal button[aria-label="Close"]`,
			`[role="dialog"] button[aria-label="Close"]`,
			`button.close`,
		},

		SSN: []string{
			`input[name="ssn"]`,
			`input[formcontrolname="ssn"]`,
		},
		LastName: []string{
			`input[name="lastName"]`,
			`input[formcontrolname="lastName"]`,
		},
		FirstName: []string{
			`input[name="firstName"]`,
			`input[formcontrolname="firstName"]`,
		},
		MiddleName: []string{
			`input[name="middleName"]`,
			`input[formcontrolname="middleName"]`,
		},
		// Material inputs: #mat-input-0 is the birth date, #mat-input-1
		// the active duty status date.
		BirthDate: []string{
			`#mat-input-0`,
			`input[name="dateOfBirth"]`,
		},
		DutyDate: []string{
			`#mat-input-1`,
			`input[name="activeDutyDate"]`,
		},

		Agreement: []string{
			`input[id*="accept"]`,
			`input[name*="accept"]`,
			`input[id*="agree"]`,
			`input[type="checkbox"]`,
		},

		Submit: []string{
			`button.btn.btn-primary`,
			`button[type="submit"]`,
			`input[type="submit"]`,
		},

		BatchFile: []string{
			`input[type="file"]`,
			`input[name="file"]`,
		},
		BatchSubmit: []string{
			`button.btn.btn-primary`,
			`button[type="submit"]`,
			`input[type="submit"]`,
		},

		LoggedIn: []string{
			`a[href*="logout"]`,
			`button[aria-label="Account"]`,
		},
	}
}
