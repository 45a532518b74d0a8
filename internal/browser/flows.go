package browser

import (
	"fmt"

	"github.com/pf274/jwt-pizza/internal/fixtures"
	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/playwright-community/playwright-go"
)

// Flows are the user journeys through the web client. Login, Register and
// Logout flows register the auth rule they need; the others expect the
// caller to have registered the backend rules first.
type Flows struct {
	Page   playwright.Page
	Routes *mockroute.Registrar
	Config *Config
	expect playwright.PlaywrightAssertions
}

// Title is the document title of every page.
const Title = "JWT Pizza"

func (f *Flows) link(name string) playwright.Locator {
	return f.Page.GetByRole("link", playwright.PageGetByRoleOptions{Name: name})
}

func (f *Flows) button(name string) playwright.Locator {
	return f.Page.GetByRole("button", playwright.PageGetByRoleOptions{Name: name})
}

func (f *Flows) textbox(name string) playwright.Locator {
	return f.Page.GetByRole("textbox", playwright.PageGetByRoleOptions{Name: name})
}

func (f *Flows) mainRegion() playwright.Locator {
	return f.Page.GetByRole("main")
}

func (f *Flows) navbar() playwright.Locator {
	return f.Page.Locator("#navbar-dark")
}

// fill types each value into the textbox with the given accessible name.
func (f *Flows) fill(fields ...[2]string) error {
	for _, field := range fields {
		if err := f.textbox(field[0]).Fill(field[1]); err != nil {
			return fmt.Errorf("filling %q: %w", field[0], err)
		}
	}
	return nil
}

func (f *Flows) click(l playwright.Locator, what string) error {
	if err := l.Click(); err != nil {
		return fmt.Errorf("clicking %s: %w", what, err)
	}
	return nil
}

// Goto navigates to path relative to the base URL.
func (f *Flows) Goto(path string) error {
	if _, err := f.Page.Goto(f.Config.URL(path)); err != nil {
		return fmt.Errorf("navigating to %s: %w", path, err)
	}
	return nil
}

// Home opens the landing page and checks its title.
func (f *Flows) Home() error {
	if err := f.Goto("/"); err != nil {
		return err
	}
	return f.expect.Page(f.Page).ToHaveTitle(Title)
}

// submitLogin fills and submits the login form from the landing page.
func (f *Flows) submitLogin(email, password string) error {
	if err := f.Home(); err != nil {
		return err
	}
	if err := f.click(f.link("Login"), "Login link"); err != nil {
		return err
	}
	if err := f.fill([2]string{"Email address", email}, [2]string{"Password", password}); err != nil {
		return err
	}
	return f.click(f.button("Login"), "Login button")
}

func (f *Flows) expectLoggedIn() error {
	if err := f.expect.Locator(f.navbar()).ToContainText("Logout"); err != nil {
		return fmt.Errorf("navbar never offered Logout: %w", err)
	}
	return nil
}

// Login signs in as user with the shared password. The backend answers
// with user and the canned token.
func (f *Flows) Login(user pizza.User) error {
	if err := f.Routes.Register(fixtures.Login(user.Email, fixtures.Password, user, fixtures.Token)); err != nil {
		return err
	}
	if err := f.submitLogin(user.Email, fixtures.Password); err != nil {
		return err
	}
	return f.expectLoggedIn()
}

// LoginAsAdmin signs in as the admin account.
func (f *Flows) LoginAsAdmin() error { return f.Login(fixtures.Admin) }

// LoginAsKai signs in as Kai, a diner who runs a franchise.
func (f *Flows) LoginAsKai() error { return f.Login(fixtures.Kai) }

// InvalidLogin tries an unknown account and returns the error the page shows.
func (f *Flows) InvalidLogin(email string) (string, error) {
	if err := f.Routes.Register(fixtures.InvalidLogin(email, fixtures.Password)); err != nil {
		return "", err
	}
	if err := f.submitLogin(email, fixtures.Password); err != nil {
		return "", err
	}
	msg := f.Page.GetByText(`{"code":404,"message":"unknown`)
	if err := msg.WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(5000)}); err != nil {
		return "", fmt.Errorf("login error never shown: %w", err)
	}
	return msg.InnerText()
}

// RegisterNewDiner signs up the new diner account and lands logged in.
func (f *Flows) RegisterNewDiner() error {
	d := fixtures.NewDiner
	rule := fixtures.Register(pizza.RegisterRequest{Name: d.Name, Email: d.Email, Password: fixtures.Password}, d, fixtures.Token)
	if err := f.Routes.Register(rule); err != nil {
		return err
	}
	if err := f.Goto("/"); err != nil {
		return err
	}
	if err := f.click(f.link("Register"), "Register link"); err != nil {
		return err
	}
	if err := f.fill(
		[2]string{"Full name", d.Name},
		[2]string{"Email address", d.Email},
		[2]string{"Password", fixtures.Password},
	); err != nil {
		return err
	}
	if err := f.click(f.button("Register"), "Register button"); err != nil {
		return err
	}
	return f.expectLoggedIn()
}

// Logout signs out. The DELETE must carry the canned bearer token.
func (f *Flows) Logout() error {
	if err := f.Routes.Register(fixtures.Logout(fixtures.Token)); err != nil {
		return err
	}
	logout := f.link("Logout")
	if err := f.expect.Locator(logout).ToBeVisible(); err != nil {
		return fmt.Errorf("no Logout link: %w", err)
	}
	if err := f.click(logout, "Logout link"); err != nil {
		return err
	}
	if err := f.expect.Locator(f.navbar()).ToContainText("Login"); err != nil {
		return fmt.Errorf("navbar never offered Login: %w", err)
	}
	return nil
}

// OrderPizzas picks storeID and the pizzas titled titles, then checks out.
func (f *Flows) OrderPizzas(storeID string, titles ...string) error {
	if err := f.click(f.button("Order now"), "Order now"); err != nil {
		return err
	}
	if _, err := f.Page.GetByRole("combobox").SelectOption(playwright.SelectOptionValues{Values: &[]string{storeID}}); err != nil {
		return fmt.Errorf("selecting store %s: %w", storeID, err)
	}
	for _, title := range titles {
		if err := f.click(f.link("Image Description "+title), title); err != nil {
			return err
		}
	}
	if err := f.expect.Locator(f.Page.Locator("form")).ToContainText(fmt.Sprintf("Selected pizzas: %d", len(titles))); err != nil {
		return err
	}
	return f.click(f.button("Checkout"), "Checkout")
}

// ExpectCheckoutPrice waits for price in the checkout table.
func (f *Flows) ExpectCheckoutPrice(price float64) error {
	return f.expect.Locator(f.Page.Locator("tbody")).ToContainText(fixtures.FormatPrice(price))
}

// Pay pays for the checked-out order and waits for the pizza.
func (f *Flows) Pay() error {
	if err := f.click(f.button("Pay now"), "Pay now"); err != nil {
		return err
	}
	return f.expect.Locator(f.Page.GetByText("Here is your JWT Pizza!")).ToBeVisible()
}

// Verify asks the backend to verify the pizza and returns the shown payload.
func (f *Flows) Verify() (string, error) {
	if err := f.click(f.button("Verify"), "Verify"); err != nil {
		return "", err
	}
	pre := f.Page.Locator("pre")
	if err := f.expect.Locator(pre).ToContainText("vendor"); err != nil {
		return "", err
	}
	return pre.InnerText()
}

// OpenAdminDashboard follows the Admin link to the franchise table.
func (f *Flows) OpenAdminDashboard() error {
	admin := f.link("Admin")
	if err := f.expect.Locator(admin).ToBeVisible(); err != nil {
		return fmt.Errorf("no Admin link: %w", err)
	}
	if err := f.click(admin, "Admin link"); err != nil {
		return err
	}
	header := f.Page.GetByRole("columnheader", playwright.PageGetByRoleOptions{Name: "Franchise", Exact: playwright.Bool(true)})
	return f.expect.Locator(header).ToBeVisible()
}

// CreateFranchise adds a franchise from the admin dashboard.
func (f *Flows) CreateFranchise(name, adminEmail string) error {
	if err := f.click(f.button("Add Franchise"), "Add Franchise"); err != nil {
		return err
	}
	if err := f.fill([2]string{"franchise name", name}, [2]string{"franchisee admin email", adminEmail}); err != nil {
		return err
	}
	if err := f.click(f.button("Create"), "Create"); err != nil {
		return err
	}
	return f.Page.WaitForURL(f.Config.URL("/admin-dashboard"))
}

// CloseFranchise closes the franchise in the admin table after checking the
// confirmation text.
func (f *Flows) CloseFranchise(name string) error {
	row := f.Page.GetByRole("row", playwright.PageGetByRoleOptions{Name: name})
	if err := f.click(row.GetByRole("button"), "close "+name); err != nil {
		return err
	}
	if err := f.expect.Locator(f.mainRegion()).ToContainText(CloseFranchisePrompt(name)); err != nil {
		return err
	}
	return f.click(f.button("Close"), "Close")
}

// OpenFranchise follows the Franchise link in the global navigation.
func (f *Flows) OpenFranchise(name string) error {
	nav := f.Page.GetByLabel("Global").GetByRole("link", playwright.LocatorGetByRoleOptions{Name: "Franchise"})
	if err := f.click(nav, "Franchise link"); err != nil {
		return err
	}
	return f.expect.Locator(f.Page.GetByRole("heading")).ToContainText(name)
}

// CreateStore opens a store in the franchise on screen.
func (f *Flows) CreateStore(name string) error {
	if err := f.click(f.button("Create store"), "Create store"); err != nil {
		return err
	}
	if err := f.fill([2]string{"store name", name}); err != nil {
		return err
	}
	return f.click(f.button("Create"), "Create")
}

// CloseStore closes the only listed store of franchise after checking the
// confirmation text.
func (f *Flows) CloseStore(franchise, store string) error {
	if err := f.click(f.button("Close"), "Close"); err != nil {
		return err
	}
	if err := f.expect.Locator(f.mainRegion()).ToContainText(CloseStorePrompt(franchise, store)); err != nil {
		return err
	}
	return f.click(f.button("Close"), "Close")
}

// ExpectMain waits for the main region to contain text.
func (f *Flows) ExpectMain(text string) error {
	return f.expect.Locator(f.mainRegion()).ToContainText(text)
}

// ExpectVisibleText waits for text to be visible anywhere on the page.
func (f *Flows) ExpectVisibleText(text string) error {
	return f.expect.Locator(f.Page.GetByText(text)).ToBeVisible()
}

// FollowLink clicks the link named name once it is visible.
func (f *Flows) FollowLink(name string) error {
	l := f.link(name)
	if err := f.expect.Locator(l).ToBeVisible(); err != nil {
		return err
	}
	return f.click(l, name+" link")
}

// CloseFranchisePrompt is the confirmation shown before closing a franchise.
func CloseFranchisePrompt(franchise string) string {
	return fmt.Sprintf("Are you sure you want to close the %s franchise? This will close all associated stores and cannot be restored. All outstanding revenue will not be refunded.", franchise)
}

// CloseStorePrompt is the confirmation shown before closing a store.
func CloseStorePrompt(franchise, store string) string {
	return fmt.Sprintf("Are you sure you want to close the %s store %s ? This cannot be restored. All outstanding revenue will not be refunded.", franchise, store)
}

// ExpectHeading waits for the page heading to contain text.
func (f *Flows) ExpectHeading(text string) error {
	return f.expect.Locator(f.Page.GetByRole("heading")).ToContainText(text)
}

// ExpectCell waits for a table cell named name.
func (f *Flows) ExpectCell(name string) error {
	return f.expect.Locator(f.Page.GetByRole("cell", playwright.PageGetByRoleOptions{Name: name})).ToBeVisible()
}

// ExpectTable waits for the table to contain text, or with present false
// to stop containing it.
func (f *Flows) ExpectTable(text string, present bool) error {
	a := f.expect.Locator(f.Page.GetByRole("table"))
	if !present {
		a = a.Not()
	}
	return a.ToContainText(text)
}

// ExpectStoreRow waits for the store table body to contain text.
func (f *Flows) ExpectStoreRow(text string) error {
	return f.expect.Locator(f.Page.Locator("tbody")).ToContainText(text)
}

// Reload reloads the page, refetching whatever it shows.
func (f *Flows) Reload() error {
	if _, err := f.Page.Reload(); err != nil {
		return fmt.Errorf("reloading: %w", err)
	}
	return nil
}

// WaitForPath waits until the page is at path.
func (f *Flows) WaitForPath(path string) error {
	return f.Page.WaitForURL(f.Config.URL(path))
}
