// Package client is the certchain Go SDK.
//
// It wraps the registrar HTTP API: admin login, draft creation and editing,
// finalization, and public certificate verification.
//
// # Public verification (no credentials)
//
// Verification is open to anyone holding a certificate's security code:
//
//	c, _ := client.New("https://registrar.example.edu")
//	res, err := c.Verify(ctx, "A1B2C3D4E5F6")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Record.CertificateSerial, res.HashValid)
//
// # Administrative operations
//
// Admin calls require a session token, obtained with Login or supplied
// up front with WithBearerToken:
//
//	c, _ := client.New("https://registrar.example.edu")
//	if _, err := c.Login(ctx, "admin42", password); err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := c.CreateRecord(ctx, client.CreateRecordRequest{
//	    StudentID: "S1024",
//	    Name:      "Jane Doe",
//	    Major:     "Computer Science",
//	})
//
// Add result caching with WithCacheTTL to avoid repeated lookups for the
// same security code:
//
//	c, _ := client.New(base, client.WithCacheTTL(60*time.Second))
package client
