package record

// Списки колонок выборок. Порядок совпадает с Dest соответствующей строки.
const (
	UserProfileColumns = `up.user_profile_id, up.display_name, up.name, up.role, up.created_at,
		ecm.contact_method_id, ecm.verified, e.email_address,
		pcm.contact_method_id, pcm.verified, p.phone_number`

	ContactMethodColumns = `cm.user_profile_id, cm.contact_method_id, cm.contact_method_type, cm.verified,
		e.email_address, p.phone_number,
		CASE WHEN a.contact_method_id IS NULL THEN NULL ELSE json_build_object(
			'country_code', a.country_code,
			'administrative_area', a.administrative_area,
			'locality', a.locality,
			'dependent_locality', a.dependent_locality,
			'postal_code', a.postal_code,
			'sorting_code', a.sorting_code,
			'address_1', a.address_1,
			'address_2', a.address_2,
			'organization', a.organization,
			'name', a.name) END`

	PlanDemandColumns = `sp.subscription_plan_id, sp.status, sp.rank, sp.name, sp.description,
		pd.payment_demand_id, pd.demand_type, pd.period, pd.amount, pd.iso_currency, pd.non_iso_currency`

	ArticleColumns = `a.article_id, a.version_key, a.revision, a.status, a.title,
		a.excerpt, a.document, a.text, a.created_at,
		up.user_profile_id, up.display_name, up.role, up.created_at`

	PaymentMethodColumns = `pp.user_profile_id, pp.payment_profile_id, pp.processor_id,
		pp.processor_customer_profile_id, pm.payment_method_id, pm.processor_payment_method_id,
		pm.payment_method_type, pm.payment_method_family, pm.display_name,
		pm.safe_account_number_fragment, pm.status, pm.expires_after`

	SubscriptionColumns = `s.user_profile_id, s.subscription_plan_id, s.payment_demand_id,
		s.payment_profile_id, s.payment_method_id, s.status, s.processor_charge_id,
		s.started_at, s.current_status_at, s.current_status_until`
)
