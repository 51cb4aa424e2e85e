package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BuiltinCatalog returns the brokers the scanner ships with. Seed inserts
// them into an empty catalog on startup.
func BuiltinCatalog() []*Broker {
	return []*Broker{
		{
			Name:             "Spokeo",
			Domain:           "spokeo.com",
			Category:         CategoryPeopleSearch,
			SearchURLPattern: "https://www.spokeo.com/{first_name}-{last_name}/{state}/{city}",
			OptOutURL:        "https://www.spokeo.com/optout",
			OptOutMethod:     MethodForm,
			OptOutInstructions: `1. Go to https://www.spokeo.com/optout
2. Enter the URL of your profile
3. Enter your email address
4. Complete the CAPTCHA
5. Click "Remove this listing"
6. Check your email for verification link
7. Click the verification link to confirm removal`,
			RequiresVerification: true,
			ProcessingDays:       3,
			CaptchaType:          "recaptcha",
			Difficulty:           2,
			IsActive:             true,
		},
		{
			Name:             "WhitePages",
			Domain:           "whitepages.com",
			Category:         CategoryPeopleSearch,
			SearchURLPattern: "https://www.whitepages.com/name/{first_name}-{last_name}/{city}-{state}",
			OptOutURL:        "https://www.whitepages.com/suppression-requests",
			OptOutMethod:     MethodForm,
			OptOutInstructions: `1. Go to https://www.whitepages.com/suppression-requests
2. Search for your listing
3. Click on your name in the results
4. Scroll down and click "Control your info"
5. Enter your phone number for verification
6. Complete the verification process
7. Wait for confirmation email`,
			RequiresVerification: true,
			ProcessingDays:       3,
			CaptchaType:          "none",
			Difficulty:           3,
			IsActive:             true,
		},
		{
			Name:             "TruePeopleSearch",
			Domain:           "truepeoplesearch.com",
			Category:         CategoryPeopleSearch,
			SearchURLPattern: "https://www.truepeoplesearch.com/results?name={first_name}%20{last_name}&citystatezip={city}%20{state}",
			OptOutURL:        "https://www.truepeoplesearch.com/removal",
			OptOutMethod:     MethodForm,
			OptOutInstructions: `1. Find your profile on TruePeopleSearch
2. Copy the profile URL
3. Go to https://www.truepeoplesearch.com/removal
4. Paste your profile URL
5. Click "Remove This Record"
6. Your listing will be removed within 72 hours`,
			ProcessingDays: 3,
			CanAutomate:    true,
			FormSelectors: map[string]string{
				"profile_url": `input[name="RecordUrl"], input[placeholder*="URL"]`,
				"submit":      `button[type="submit"], input[value*="Remove"]`,
			},
			CaptchaType: "none",
			Difficulty:  1,
			IsActive:    true,
		},
		{
			Name:             "BeenVerified",
			Domain:           "beenverified.com",
			Category:         CategoryBackgroundCheck,
			SearchURLPattern: "https://www.beenverified.com/f/{first_name}-{last_name}/{state}/{city}",
			OptOutURL:        "https://www.beenverified.com/opt-out/",
			OptOutMethod:     MethodForm,
			OptOutInstructions: `1. Go to https://www.beenverified.com/opt-out/
2. Search for your listing
3. Click "Opt Out" next to your record
4. Enter your email address
5. Check your email for verification link
6. Click the link to confirm opt-out
7. Wait 24-48 hours for removal`,
			RequiresVerification: true,
			ProcessingDays:       2,
			CaptchaType:          "recaptcha",
			Difficulty:           2,
			IsActive:             true,
		},
		{
			Name:             "FastPeopleSearch",
			Domain:           "fastpeoplesearch.com",
			Category:         CategoryPeopleSearch,
			SearchURLPattern: "https://www.fastpeoplesearch.com/name/{first_name}-{last_name}_{city}-{state}",
			OptOutURL:        "https://www.fastpeoplesearch.com/removal",
			OptOutMethod:     MethodForm,
			OptOutInstructions: `1. Find your profile on FastPeopleSearch
2. Click "View Free Details" to get the full profile URL
3. Go to https://www.fastpeoplesearch.com/removal
4. Enter your profile URL
5. Check "I'm not a robot"
6. Click "Begin Removal Process"`,
			ProcessingDays: 1,
			CanAutomate:    true,
			FormSelectors: map[string]string{
				"profile_url": `input[name="url"]`,
				"submit":      `button[type="submit"]`,
			},
			CaptchaType: "recaptcha",
			Difficulty:  1,
			IsActive:    true,
		},
		{
			Name:             "Intelius",
			Domain:           "intelius.com",
			Category:         CategoryBackgroundCheck,
			SearchURLPattern: "https://www.intelius.com/people/{first_name}-{last_name}/{state}/{city}",
			OptOutURL:        "https://www.intelius.com/opt-out/submit/",
			OptOutMethod:     MethodForm,
			OptOutEmail:      "privacy@intelius.com",
			OptOutInstructions: `1. Go to https://www.intelius.com/opt-out/submit/
2. Enter your name, city, state
3. Enter your email for confirmation
4. Complete the form and submit
5. Check your email for verification
6. Click verification link
7. Processing takes up to 72 hours`,
			RequiresVerification: true,
			ProcessingDays:       3,
			CaptchaType:          "recaptcha",
			Difficulty:           2,
			IsActive:             true,
		},
	}
}

// Seed inserts the built-in catalog into an empty repository. Existing
// catalogs are left untouched.
func Seed(ctx context.Context, repo Repository) error {
	existing, err := repo.AllActive(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	for _, b := range BuiltinCatalog() {
		b.ID = uuid.New().String()
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := repo.Create(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
