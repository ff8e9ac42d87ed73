package seotool

// Condensed SEO snapshot served by the mock provider: keyword gaps against
// competitors, coverage per keyword, and open issues.
const mockSnapshotJSON = `{
  "semrush": {
    "keyword_gap": {
      "updated_at": "2025-12-23T18:50:00Z",
      "you": "demo-shop.example.com",
      "competitors": [
        "competitor-a.example.com",
        "competitor-b.example.com",
        "competitor-c.example.com"
      ],
      "keyword_types": ["missing", "untapped"],
      "missing": [
        {
          "keyword": "蓝牙耳机 续航 测试",
          "volume": 2900,
          "kd": 44,
          "intent": "informational",
          "top_competitor": "competitor-a.example.com",
          "top_competitor_url": "https://competitor-a.example.com/blog/battery-test-guide",
          "note": "竞争对手有排名，你站点无排名"
        },
        {
          "keyword": "耳机 风噪 抑制",
          "volume": 1600,
          "kd": 37,
          "intent": "informational",
          "top_competitor": "competitor-b.example.com",
          "top_competitor_url": "https://competitor-b.example.com/noise/wind-noise",
          "note": "竞争对手有排名，你站点无排名"
        }
      ],
      "untapped": [
        {
          "keyword": "65w 氮化镓 充电器 选购",
          "volume": 2400,
          "kd": 39,
          "intent": "commercial",
          "top_competitor": "competitor-c.example.com",
          "top_competitor_url": "https://competitor-c.example.com/blog/gan-65w-buying-guide",
          "note": "至少一个竞争对手有排名，你站点无排名"
        }
      ]
    }
  },
  "keyword_coverage": {
    "updated_at": "2025-12-23T19:10:00Z",
    "matching_method": "title_or_h1_or_primary_keyword_tag",
    "by_keyword": [
      {
        "keyword": "蓝牙耳机 续航",
        "status": "covered",
        "mapped_url": "https://demo-shop.example.com/products/earbuds-x1",
        "confidence": 0.84,
        "evidence_path": "semrush.on_page_seo_checker.targets[0].target_keyword"
      },
      {
        "keyword": "蓝牙耳机 续航 测试",
        "status": "no_content_page",
        "mapped_url": null,
        "confidence": 0.92,
        "suggested_content_type": "blog_post",
        "suggested_slug": "/blog/earbuds-battery-test",
        "evidence_path": "semrush.keyword_gap.missing[0]"
      },
      {
        "keyword": "耳机 风噪 抑制",
        "status": "no_content_page",
        "mapped_url": null,
        "confidence": 0.90,
        "suggested_content_type": "blog_post",
        "suggested_slug": "/blog/wind-noise-reduction",
        "evidence_path": "semrush.keyword_gap.missing[1]"
      },
      {
        "keyword": "65w 氮化镓 充电器 选购",
        "status": "weak_coverage",
        "mapped_url": "https://demo-shop.example.com/products/gan-charger-65w",
        "confidence": 0.62,
        "reason": "只有产品页，缺少选购指南类内容承接长尾词",
        "evidence_path": "semrush.keyword_gap.untapped[0]"
      }
    ],
    "summary": {"covered": 1, "weak_coverage": 1, "no_content_page": 2}
  },
  "issues": {
    "summary": [
      {
        "issue_type": "CONTENT_KEYWORD_NO_PAGE",
        "category": "Content",
        "severity": "notice",
        "count": 2,
        "top_examples": [
          {
            "url": "(new) https://demo-shop.example.com/blog/earbuds-battery-test",
            "evidence_path": "keyword_coverage.by_keyword[1]"
          },
          {
            "url": "(new) https://demo-shop.example.com/blog/wind-noise-reduction",
            "evidence_path": "keyword_coverage.by_keyword[2]"
          }
        ]
      }
    ]
  }
}`
