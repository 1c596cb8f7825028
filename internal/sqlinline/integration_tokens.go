package sqlinline

const QSelectIntegrationToken = `--sql 3884b919-4812-431d-b48d-b806ff675167
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 3db1df71-f46b-40f4-a158-891187370ede
insert into integration_tokens(id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update
set token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`

const QListIntegrationProviders = `--sql 89ef5d08-8a85-4e5d-b372-5ab0c60761b8
select provider, updated_at
from integration_tokens
order by provider;
`
