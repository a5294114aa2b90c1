package market

// CSS selectors for the known marketplace page shape.
// Centralising them makes future updates trivial. The bot assumes this
// exact layout and fails loudly when the live page diverges from it.
const (
	// Cookie consent banner
	CookieButtonSelector     = `#__next > div > div > button`
	CookieButtonIconSelector = CookieButtonSelector + ` > span > svg > path`

	// Account creation modal
	NavMenuButtonSelector  = `#__next nav > ul > li > button`
	DialogOverlaySelector  = `div[data-testid=dialog-overlay]`
	EmailFieldSelector     = DialogOverlaySelector + ` #email`
	FirstNameFieldSelector = DialogOverlaySelector + ` #firstname`
	LastNameFieldSelector  = DialogOverlaySelector + ` #lastname`
	DialogSubmitSelector   = DialogOverlaySelector + ` form button[type=submit]`

	// Home page sales list
	AvailableMarkerSelector = `#tickets [data-testid=available-h2]`
	SalesContainerSelector  = `#tickets > div > ul`
	SaleAnchorSelector      = `div > a`
	SaleFooterFieldSelector = `footer > div`

	// Sale page
	TicketRowSelector      = `#__next > div > div > div > form > div > div > div > div`
	CheckoutButtonSelector = `#__next > div > div > div > form > button`
)

// ConnectMenuLabel is the visible text of the nav menu button that
// opens the login/registration modal (the site renders in French).
const ConnectMenuLabel = "Connecte-toi"
