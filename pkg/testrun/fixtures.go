package testrun

import "strings"

// Canned payloads the simulated tests run the real parsers against.
// {{origin}} is replaced with the scheme and host of the source's site.

const listingFixture = `<html>
<head><title>Open positions</title></head>
<body>
  <nav><a href="/">Home</a> <a href="/about">About</a> <a href="mailto:jobs@{{host}}">Contact</a></nav>
  <main id="jobs">
    <ul class="postings">
      <li><a href="/jobs/1042-senior-go-engineer">Senior Go Engineer</a></li>
      <li><a href="/jobs/1043-site-reliability-engineer">Site Reliability Engineer</a></li>
      <li><a href="/jobs/1044-product-designer?ref=listing">Product Designer</a></li>
      <li><a href="/jobs/1044-product-designer">Product Designer</a></li>
      <li><a href="{{origin}}/jobs/1045-data-analyst#apply">Data Analyst</a></li>
    </ul>
    <a class="next" href="/jobs?page=2">Next</a>
  </main>
  <footer><a href="/privacy">Privacy</a> <a href="https://social.example/acme">Follow us</a></footer>
</body>
</html>`

const articleFixture = `<html>
<head><title>Senior Go Engineer | Careers</title></head>
<body>
  <header><nav><a href="/">Home</a> <a href="/jobs">All jobs</a></nav></header>
  <main>
    <article class="posting">
      <h1>Senior Go Engineer <a class="headerlink" href="#top">¶</a></h1>
      <span class="location">Berlin, Germany</span>
      <time class="posted" datetime="2026-01-12">12 January 2026</time>
      <h2>About the role</h2>
      <p>You will build and operate the ingestion services that keep our catalogue fresh for millions of visitors every day.</p>
      <h2>Requirements</h2>
      <ul>
        <li>Five or more years writing production Go services at scale.</li>
        <li>Comfortable running workloads on Kubernetes and debugging them in production.</li>
        <li>Remote</li>
      </ul>
      <p>Read more about the <a href="/teams/platform">platform team</a> before you apply for this position.</p>
      <img src="/img/office.jpg" alt="Our office">
    </article>
  </main>
  <footer>Copyright Acme</footer>
</body>
</html>`

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Careers feed</title>
    <link>{{origin}}/jobs</link>
    <description>Latest openings</description>
    <item>
      <title>Senior Go Engineer</title>
      <link>{{origin}}/jobs/1042-senior-go-engineer</link>
      <guid isPermaLink="false">job-1042</guid>
      <pubDate>Mon, 12 Jan 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Site Reliability Engineer</title>
      <link>{{origin}}/jobs/1043-site-reliability-engineer</link>
      <guid isPermaLink="false">job-1043</guid>
      <pubDate>Tue, 13 Jan 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Product Designer</title>
      <link>{{origin}}/jobs/1044-product-designer</link>
      <guid isPermaLink="false">job-1044</guid>
      <pubDate>Wed, 14 Jan 2026 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const sitemapFixture = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{origin}}/</loc><lastmod>2025-06-01</lastmod></url>
  <url><loc>{{origin}}/about</loc><lastmod>2024-11-20</lastmod></url>
  <url><loc>{{origin}}/jobs/1042-senior-go-engineer</loc><lastmod>2026-01-12</lastmod></url>
  <url><loc>{{origin}}/jobs/1043-site-reliability-engineer</loc><lastmod>2026-01-13T09:00:00Z</lastmod></url>
  <url><loc>{{origin}}/jobs/1044-product-designer</loc><lastmod>2025-12-30</lastmod></url>
  <url><loc>{{origin}}/blog/engineering-culture</loc></url>
</urlset>`

const apiListFixture = `{
  "data": {
    "items": [
      {"id": 1042, "title": "Senior Go Engineer", "url": "{{origin}}/jobs/1042", "location": {"city": "Berlin", "country": "DE"}, "tags": ["go", "backend"]},
      {"id": 1043, "title": "Site Reliability Engineer", "url": "{{origin}}/jobs/1043", "location": {"city": "Lisbon", "country": "PT"}, "tags": ["sre"]},
      {"id": 1044, "title": "Product Designer", "url": "{{origin}}/jobs/1044", "location": {"city": "Remote", "country": ""}, "tags": []}
    ]
  },
  "meta": {"total": 3, "page": 1},
  "next_cursor": "eyJwYWdlIjoyfQ"
}`

const apiDetailFixture = `{
  "data": {
    "id": 1042,
    "title": "Senior Go Engineer",
    "url": "{{origin}}/jobs/1042",
    "description": "Build and operate the ingestion services.",
    "location": {"city": "Berlin", "country": "DE"},
    "salary": {"min": 85000, "max": 105000, "currency": "EUR"},
    "posted_at": "2026-01-12T09:00:00Z",
    "remote": false
  }
}`

// fill substitutes the site origin into a fixture.
func fill(fixture, origin, host string) string {
	return strings.NewReplacer("{{origin}}", origin, "{{host}}", host).Replace(fixture)
}
